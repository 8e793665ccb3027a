package models

import (
	"time"

	"hbs/src/types"
)

type Agreement struct {
	ID          uint       `gorm:"primarykey" json:"id"`
	UserID      uint       `json:"user_id,omitempty"`
	BookingID   uint       `json:"booking_id,omitempty"`
	Reference   string     `json:"reference,omitempty"`
	URL         string     `json:"url,omitempty"`
	SignedURL   string     `json:"signed_url,omitempty"`
	GeneratedAt *time.Time `json:"generated_at,omitempty"`

	User    *User    `gorm:"foreignKey:user_id" json:"user,omitempty"`
	Booking *Booking `gorm:"foreignKey:booking_id" json:"booking,omitempty"`

	types.Timestamps
}
