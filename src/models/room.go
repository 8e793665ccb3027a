package models

import "hbs/src/types"

type Room struct {
	ID        uint             `gorm:"primarykey" json:"id"`
	Title     string           `json:"title,omitempty"`
	Slug      string           `gorm:"uniqueIndex" json:"slug,omitempty"`
	Thumbnail string           `json:"thumbnail,omitempty"`
	Price     float64          `json:"price,omitempty"`
	Available bool             `gorm:"default:true" json:"available"`
	Features  string           `json:"features,omitempty"`
	Images    types.JSONBArray `gorm:"type:jsonb" json:"images,omitempty"`

	Bookings []Booking `gorm:"foreignKey:room_id" json:"bookings,omitempty"`

	types.Timestamps
}
