package models

import (
	"time"

	"hbs/src/types"

	"github.com/google/uuid"
)

type Transaction struct {
	ID uuid.UUID `gorm:"primarykey;type:uuid;default:gen_random_uuid()" json:"id"`

	BookingID   uint                    `json:"booking_id,omitempty"`
	Reference   string                  `gorm:"uniqueIndex" json:"reference"`
	Description string                  `json:"description,omitempty"`
	Duration    uint                    `json:"duration,omitempty"`
	Currency    string                  `json:"currency,omitempty"`
	Amount      float64                 `json:"amount,omitempty"`
	Status      types.TransactionStatus `gorm:"default:'pending'" json:"status,omitempty"`
	GatewayID   string                  `json:"gateway_id,omitempty"`
	PaidAt      *time.Time              `json:"paid_at,omitempty"`
	Metadata    types.JSONB             `gorm:"type:jsonb" json:"metadata,omitempty"`

	types.Timestamps

	Booking Booking `gorm:"foreignKey:booking_id" json:"-"`
}
