package config

import (
	"fmt"
	"os"
)

func GetDSN() string {
	DATABASE_HOST := os.Getenv("DATABASE_HOST")
	DATABASE_PORT := os.Getenv("DATABASE_PORT")
	DATABASE_SSLMODE := os.Getenv("DATABASE_SSLMODE")
	DATABASE_TIMEZONE := os.Getenv("DATABASE_TIMEZONE")
	DATABASE_USER := os.Getenv("DATABASE_USER")
	DATABASE_PASSWORD := os.Getenv("DATABASE_PASSWORD")
	DATABASE_NAME := os.Getenv("DATABASE_NAME")
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", DATABASE_HOST, DATABASE_USER, DATABASE_PASSWORD, DATABASE_NAME, DATABASE_PORT, DATABASE_SSLMODE, DATABASE_TIMEZONE)
	return dsn
}

// AppBaseURL resolves relative asset paths returned by the API into absolute URLs.
func AppBaseURL() string {
	return os.Getenv("APP_BASE_URL")
}

const TIME_PARSE_FORMAT = "2006-01-02 15:04:05 -07:00"

// PLACEHOLDER_IMAGE is served when a stored image path cannot be resolved.
const PLACEHOLDER_IMAGE = "/assets/placeholder-room.png"

// AGREEMENT_TEMPLATE_KEY is the S3 key of the blank tenancy agreement.
const AGREEMENT_TEMPLATE_KEY = "tenancy-agreement.pdf"

const CURRENCY = "NGN"
