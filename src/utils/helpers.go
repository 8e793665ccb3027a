package utils

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"math"
	"net/url"
	"os"
	"strings"
	"time"

	"hbs/src/config"
	"hbs/src/db"
	"hbs/src/lib"
	"hbs/src/models"
	"hbs/src/types"
	"hbs/src/workflow"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

func IsProd() bool {
	return os.Getenv("API_ENV") == "production"
}

func WithSuffix(name string) string {
	apiEnv := os.Getenv("API_ENV")
	if apiEnv == "" {
		return name
	}
	return fmt.Sprintf("%s-%s", name, apiEnv)
}

// GenerateReference produces the transaction reference shared with the
// payment gateway.
func GenerateReference() string {
	b := make([]byte, 6)
	rand.Read(b)
	return fmt.Sprintf("TXN-%s", strings.ToUpper(hex.EncodeToString(b)))
}

// ResolveAssetURL turns a relative image path returned by the backend into an
// absolute URL. Malformed input falls back to the placeholder image.
func ResolveAssetURL(p string) string {
	base := config.AppBaseURL()
	if p == "" {
		return base + config.PLACEHOLDER_IMAGE
	}
	parsed, err := url.Parse(p)
	if err != nil {
		return base + config.PLACEHOLDER_IMAGE
	}
	if parsed.IsAbs() {
		return p
	}
	joined, err := url.JoinPath(base, p)
	if err != nil {
		return base + config.PLACEHOLDER_IMAGE
	}
	return joined
}

// RentAmount prices a stay: the stored price is annual, duration is in months.
func RentAmount(annualPrice float64, duration uint) float64 {
	amount := annualPrice * float64(duration) / 12
	return math.Round(amount*100) / 100
}

func RoomResponse(room *models.Room) types.APIResponseRoom {
	images := make([]string, 0, len(room.Images))
	for _, img := range room.Images {
		if s, ok := img.(string); ok {
			images = append(images, ResolveAssetURL(s))
		}
	}
	return types.APIResponseRoom{
		ID:        room.ID,
		Title:     room.Title,
		Slug:      room.Slug,
		Thumbnail: ResolveAssetURL(room.Thumbnail),
		Price:     fmt.Sprintf("%.2f", room.Price),
		Available: room.Available,
		Features:  room.Features,
		Images:    images,
	}
}

const bookingHoldWindow = 30 * time.Minute

// CreateRoomBooking reserves a room for a tenant: the room goes off market for
// the hold window and a pending transaction is written with a fresh reference.
func CreateRoomBooking(userId uint, roomId uint, duration uint) (*models.Booking, *models.Transaction, error) {
	gdb := db.GetDb()
	var booking models.Booking
	var txn models.Transaction
	err := gdb.Transaction(func(tx *gorm.DB) error {
		var room models.Room
		if err := tx.
			Model(&models.Room{}).
			Where(&models.Room{ID: roomId}).
			First(&room).
			Error; err != nil {
			return errors.New("room not found")
		}
		if !room.Available {
			return errors.New("room no longer available")
		}
		holdUntil := time.Now().Add(bookingHoldWindow)
		booking = models.Booking{
			RoomID:    roomId,
			UserID:    userId,
			Duration:  duration,
			Amount:    RentAmount(room.Price, duration),
			Currency:  config.CURRENCY,
			Status:    types.BOOKING_PENDING,
			HoldUntil: &holdUntil,
		}
		if err := tx.Create(&booking).Error; err != nil {
			return err
		}
		txn = models.Transaction{
			BookingID:   booking.ID,
			Reference:   GenerateReference(),
			Description: fmt.Sprintf("%s (%d months)", room.Title, duration),
			Duration:    duration,
			Currency:    config.CURRENCY,
			Amount:      booking.Amount,
			Status:      types.TRANSACTION_PENDING,
			Metadata: types.JSONB{
				"room_id": roomId,
				"user_id": userId,
			},
		}
		if err := tx.Create(&txn).Error; err != nil {
			return err
		}
		if err := tx.
			Model(&models.Booking{}).
			Where(&models.Booking{ID: booking.ID}).
			Update("transaction_id", txn.ID).
			Error; err != nil {
			return err
		}
		if err := tx.
			Model(&models.Room{}).
			Where(&models.Room{ID: roomId}).
			Update("available", false).
			Error; err != nil {
			return err
		}
		booking.TransactionID = &txn.ID
		booking.Room = &room
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if booking.HoldUntil != nil {
		// sweep right when this hold lapses, ahead of the periodic job
		if _, err := lib.CreateOneTimeCronJob(
			gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(*booking.HoldUntil)),
			gocron.NewTask(ExpireStaleBookings),
		); err != nil {
			log.Printf("Could not schedule hold expiry for booking [%d]: %s\n", booking.ID, err.Error())
		}
	}
	return &booking, &txn, nil
}

// MarkTransactionPaid settles a reference: transaction success, booking
// completed, room stays off market. Idempotent for repeated webhook delivery.
func MarkTransactionPaid(reference string, gatewayId string) error {
	gdb := db.GetDb()
	var txn models.Transaction
	err := gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Model(&models.Transaction{}).
			Where("reference = ?", reference).
			First(&txn).
			Error; err != nil {
			return err
		}
		if txn.Status == types.TRANSACTION_SUCCESS {
			return nil
		}
		now := time.Now()
		if err := tx.
			Model(&models.Transaction{}).
			Where("reference = ?", reference).
			Updates(&models.Transaction{
				Status:    types.TRANSACTION_SUCCESS,
				GatewayID: gatewayId,
				PaidAt:    &now,
			}).
			Error; err != nil {
			return err
		}
		if err := tx.
			Model(&models.Booking{}).
			Where(&models.Booking{ID: txn.BookingID}).
			Updates(&models.Booking{Status: types.BOOKING_COMPLETED}).
			Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		log.Printf("Error settling transaction %s: %s\n", reference, err.Error())
		return err
	}
	go PublishPaymentEvent(reference, string(types.TRANSACTION_SUCCESS))
	return nil
}

// PublishPaymentEvent emits a payment audit record for downstream consumers.
func PublishPaymentEvent(reference string, status string) {
	payload := map[string]any{
		"reference": reference,
		"status":    status,
		"at":        time.Now().UTC().Format(time.RFC3339),
	}
	if err := lib.KafkaProduceMessage("payments", WithSuffix("payment-events"), payload); err != nil {
		log.Printf("Could not publish payment event for %s: %s\n", reference, err.Error())
	}
}

// ExpireStaleBookings releases rooms whose unpaid holds have lapsed. Runs on
// the scheduler.
func ExpireStaleBookings() {
	gdb := db.GetDb()
	var bookings []models.Booking
	err := gdb.
		Model(&models.Booking{}).
		Where("status = ? AND hold_until < ?", types.BOOKING_PENDING, time.Now()).
		Find(&bookings).
		Error
	if err != nil {
		log.Printf("Error querying stale bookings: %s\n", err.Error())
		return
	}
	for _, booking := range bookings {
		b := booking
		err := gdb.Transaction(func(tx *gorm.DB) error {
			if err := tx.
				Model(&models.Booking{}).
				Where(&models.Booking{ID: b.ID}).
				Update("status", types.BOOKING_EXPIRED).
				Error; err != nil {
				return err
			}
			if b.TransactionID != nil {
				if err := tx.
					Model(&models.Transaction{}).
					Where("id = ?", *b.TransactionID).
					Update("status", types.TRANSACTION_EXPIRED).
					Error; err != nil {
					return err
				}
			}
			if err := tx.
				Model(&models.Room{}).
				Where(&models.Room{ID: b.RoomID}).
				Update("available", true).
				Error; err != nil {
				return err
			}
			return nil
		})
		if err != nil {
			log.Printf("Error expiring booking [%d]: %s\n", b.ID, err.Error())
			continue
		}
		log.Printf("Expired booking [%d], room [%d] back on market\n", b.ID, b.RoomID)
	}
}

// RoomReserver adapts the booking call for the purchase workflow.
type RoomReserver struct {
	UserID uint
	Email  string
	// Duration of the stay in months
	Duration uint
}

func (r *RoomReserver) Reserve(ctx context.Context, roomId uint) (*workflow.Reservation, error) {
	booking, txn, err := CreateRoomBooking(r.UserID, roomId, r.Duration)
	if err != nil {
		return nil, err
	}
	amountKobo := float32(txn.Amount * 100)
	if _, err := lib.PaystackInitializeTransaction(r.Email, txn.Reference, amountKobo, map[string]any{
		"booking_id": booking.ID,
		"user_id":    r.UserID,
	}); err != nil {
		return nil, err
	}
	return &workflow.Reservation{
		Reference:   txn.Reference,
		Description: txn.Description,
		Duration:    txn.Duration,
		Amount:      txn.Amount,
		Status:      string(txn.Status),
		Init: workflow.PaymentParams{
			PublicKey: lib.PaystackPublicKey(),
			Email:     r.Email,
			Amount:    txn.Amount,
			Reference: txn.Reference,
		},
	}, nil
}

// GatewayVerifier answers verification polls, preferring the local record the
// webhook may already have settled before asking the gateway.
type GatewayVerifier struct{}

func (GatewayVerifier) Verify(ctx context.Context, reference string) (workflow.VerificationResult, error) {
	gdb := db.GetDb()
	var txn models.Transaction
	if err := gdb.
		Model(&models.Transaction{}).
		Where("reference = ?", reference).
		First(&txn).
		Error; err != nil {
		return workflow.VerificationResult{Status: "error", TransactionStatus: "unpaid"}, err
	}
	if txn.Status == types.TRANSACTION_SUCCESS {
		return workflow.VerificationResult{Status: "success", TransactionStatus: "success"}, nil
	}
	gtxn, err := lib.PaystackVerifyTransaction(reference)
	if err != nil {
		return workflow.VerificationResult{Status: "error", TransactionStatus: "unpaid"}, err
	}
	if gtxn.Status == "success" {
		if err := MarkTransactionPaid(reference, fmt.Sprint(gtxn.ID)); err != nil {
			log.Printf("Could not settle %s after gateway verify: %s\n", reference, err.Error())
		}
		return workflow.VerificationResult{Status: "success", TransactionStatus: "success"}, nil
	}
	return workflow.VerificationResult{Status: "success", TransactionStatus: "unpaid"}, nil
}

// WorkflowUpdates pushes workflow notifications onto the tenant's message list
// so the client can poll them.
func WorkflowUpdates(userId uint) workflow.NotifyFunc {
	return func(level workflow.Level, message string) {
		rd := lib.GetRedisClient()
		if rd == nil {
			log.Printf("[workflow:%d] %s: %s\n", userId, level, message)
			return
		}
		key := fmt.Sprintf("wf:%d:messages", userId)
		rd.RPush(context.Background(), key, fmt.Sprintf("%s|%s", level, message))
		rd.Expire(context.Background(), key, time.Hour)
	}
}
