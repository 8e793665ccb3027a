package models

import (
	"time"

	"hbs/src/types"

	"github.com/google/uuid"
)

type Booking struct {
	ID        uint                `gorm:"primarykey" json:"id"`
	RoomID    uint                `json:"room_id,omitempty"`
	UserID    uint                `json:"user_id,omitempty"`
	Duration  uint                `json:"duration,omitempty"`
	Amount    float64             `json:"amount,omitempty"`
	Currency  string              `json:"currency,omitempty"`
	Status    types.BookingStatus `gorm:"default:'pending'" json:"status,omitempty"`
	HoldUntil *time.Time          `json:"hold_until,omitempty"`

	TransactionID *uuid.UUID `gorm:"type:uuid" json:"transaction_id,omitempty"`

	Room        *Room        `gorm:"foreignKey:room_id" json:"room,omitempty"`
	User        *User        `gorm:"foreignKey:user_id" json:"user,omitempty"`
	Transaction *Transaction `json:"transaction,omitempty"`

	types.Timestamps
}
