package models

import (
	"time"

	"hbs/src/types"
)

type User struct {
	ID            uint            `gorm:"primarykey" json:"id"`
	Name          string          `json:"name,omitempty"`
	Email         string          `gorm:"uniqueIndex" json:"email,omitempty"`
	Password      string          `json:"-"`
	Phone         string          `json:"phone,omitempty"`
	Role          string          `gorm:"default:'tenant'" json:"role,omitempty"`
	MatricNumber  string          `json:"matric_number,omitempty"`
	Institution   string          `json:"institution,omitempty"`
	Department    string          `json:"department,omitempty"`
	Level         string          `json:"level,omitempty"`
	NextOfKin     string          `json:"next_of_kin,omitempty"`
	NextOfKinTel  string          `json:"next_of_kin_tel,omitempty"`
	IdentityDoc   string          `json:"identity_doc,omitempty"`
	SignedDoc     string          `json:"signed_doc,omitempty"`
	AgreementURL  string          `json:"agreement_url,omitempty"`
	EmailVerified bool            `json:"email_verified,omitempty"`
	LastActive    *time.Time      `json:"last_active,omitempty"`
	Metadata      *types.Metadata `gorm:"type:jsonb" json:"metadata,omitempty"`

	Bookings []Booking `gorm:"foreignKey:user_id" json:"bookings,omitempty"`

	types.Timestamps
}
