package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any
type JSONBArray []any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

func (a JSONBArray) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONBArray) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

type RoomQueryFilters struct {
	Available string
	MinPrice  string
	MaxPrice  string
	Search    string
}

type RegisterUserRequestBody struct {
	Name            string `json:"name" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=Password"`
	Phone           string `json:"phone" binding:"required,phonedigits"`
	MatricNumber    string `json:"matric_number" binding:"required,matricno"`
	Institution     string `json:"institution" binding:"required"`
	Department      string `json:"department,omitempty"`
	Level           string `json:"level,omitempty"`
}

type LoginRequestBody struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ForgotPasswordRequestBody struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequestBody struct {
	Email           string `json:"email" binding:"required,email"`
	OTP             string `json:"otp" binding:"required,len=6"`
	Password        string `json:"password" binding:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=Password"`
}

type ChangePasswordRequestBody struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	Password        string `json:"password" binding:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=Password"`
}

type UpdateProfileRequestBody struct {
	Name         string `json:"name,omitempty"`
	Phone        string `json:"phone,omitempty" binding:"omitempty,phonedigits"`
	MatricNumber string `json:"matric_number,omitempty" binding:"omitempty,matricno"`
	Institution  string `json:"institution,omitempty"`
	Department   string `json:"department,omitempty"`
	Level        string `json:"level,omitempty"`
	NextOfKin    string `json:"next_of_kin,omitempty"`
	NextOfKinTel string `json:"next_of_kin_tel,omitempty" binding:"omitempty,phonedigits"`
}

type BookRoomRequestBody struct {
	Duration uint `json:"duration" binding:"required,min=1,max=24"`
}

type CreateRoomRequestBody struct {
	Title     string   `json:"title" binding:"required"`
	Price     float64  `json:"price" binding:"required,gt=0"`
	Features  string   `json:"features,omitempty"`
	Thumbnail string   `json:"thumbnail,omitempty"`
	Images    []string `json:"images,omitempty"`
	Available *bool    `json:"available,omitempty"`
}

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type ReferenceRequestParams struct {
	Reference string `uri:"reference" binding:"required"`
}

type TransactionQueryFilters struct {
	Status string
	Search string
}

type Status string

type BookingStatus string

const (
	BOOKING_PENDING   BookingStatus = "pending"
	BOOKING_UNPAID    BookingStatus = "unpaid"
	BOOKING_COMPLETED BookingStatus = "completed"
	BOOKING_CANCELED  BookingStatus = "canceled"
	BOOKING_EXPIRED   BookingStatus = "expired"
)

type TransactionStatus string

const (
	TRANSACTION_PENDING  TransactionStatus = "pending"
	TRANSACTION_UNPAID   TransactionStatus = "unpaid"
	TRANSACTION_SUCCESS  TransactionStatus = "success"
	TRANSACTION_FAILED   TransactionStatus = "failed"
	TRANSACTION_CANCELED TransactionStatus = "canceled"
	TRANSACTION_EXPIRED  TransactionStatus = "expired"
)

type Metadata map[string]any

// PaymentInitData is returned to the client verbatim so the Paystack inline
// widget opens with the same reference the backend tracks.
type PaymentInitData struct {
	GatewayPublicKey string  `json:"gateway_public_key"`
	Email            string  `json:"email"`
	Amount           float64 `json:"amount"`
	Reference        string  `json:"reference"`
}

type APIResponseTransaction struct {
	Reference   string     `json:"reference"`
	Description string     `json:"description,omitempty"`
	Duration    uint       `json:"duration,omitempty"`
	Amount      float64    `json:"amount"`
	Status      string     `json:"status"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	Room        any        `json:"room,omitempty"`
}

type APIResponseRoom struct {
	ID        uint     `json:"id"`
	Title     string   `json:"title"`
	Slug      string   `json:"slug,omitempty"`
	Thumbnail string   `json:"thumbnail,omitempty"`
	Price     string   `json:"price"`
	Available bool     `json:"available"`
	Features  string   `json:"features,omitempty"`
	Images    []string `json:"images,omitempty"`
}

type VerifyTransactionResponse struct {
	Status            string `json:"status"`
	TransactionStatus string `json:"transaction_status"`
}
