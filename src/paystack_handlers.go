package main

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	"hbs/src/db"
	"hbs/src/lib"
	"hbs/src/lib/mailer"
	"hbs/src/models"
	"hbs/src/types"
	"hbs/src/utils"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
)

// bookingConfirmation delivers the post-payment email. Tests swap it out.
var bookingConfirmation = sendBookingConfirmation

func paystackWebhookRoute(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.POST("/webhook/paystack", func(ctx *gin.Context) {
		payload, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			log.Printf("Error reading request body: %s\n", err.Error())
			ctx.Status(http.StatusServiceUnavailable)
			return
		}
		signature := ctx.GetHeader("x-paystack-signature")
		if !verifyPaystackSignature(payload, signature) {
			log.Println("Error verifying webhook signature")
			ctx.Status(http.StatusBadRequest)
			return
		}
		event := gjson.GetBytes(payload, "event").String()
		log.Printf("[PaystackEvent] %s\n", event)
		switch event {
		case "charge.success":
			reference := gjson.GetBytes(payload, "data.reference").String()
			gatewayId := gjson.GetBytes(payload, "data.id").String()
			if reference == "" {
				log.Println("[Paystack] charge.success without reference")
				break
			}
			if err := utils.MarkTransactionPaid(reference, gatewayId); err != nil {
				log.Printf("Error settling transaction %s: %s\n", reference, err.Error())
				break
			}
			go bookingConfirmation(reference)
		case "charge.failed":
			reference := gjson.GetBytes(payload, "data.reference").String()
			if reference == "" {
				break
			}
			gdb := db.GetDb()
			if err := gdb.
				Model(&models.Transaction{}).
				Where("reference = ? AND status = ?", reference, types.TRANSACTION_PENDING).
				Update("status", types.TRANSACTION_UNPAID).
				Error; err != nil {
				log.Printf("Error updating transaction %s: %s\n", reference, err.Error())
			}
			go utils.PublishPaymentEvent(reference, string(types.TRANSACTION_UNPAID))
		default:
			log.Printf("[Paystack] unhandled event %s\n", event)
		}
		ctx.Status(http.StatusOK)
	})
	return apiv1
}

func verifyPaystackSignature(payload []byte, signature string) bool {
	if signature == "" {
		return false
	}
	secret := os.Getenv("PAYSTACK_SECRET_KEY")
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func sendBookingConfirmation(reference string) {
	gdb := db.GetDb()
	var txn models.Transaction
	if err := gdb.
		Model(&models.Transaction{}).
		Where("reference = ?", reference).
		Preload("Booking").
		Preload("Booking.User").
		Preload("Booking.Room").
		First(&txn).
		Error; err != nil {
		log.Printf("Could not load transaction %s for confirmation email: %s\n", reference, err.Error())
		return
	}
	user := txn.Booking.User
	room := txn.Booking.Room
	if user == nil || room == nil {
		log.Printf("Transaction %s missing booking associations\n", reference)
		return
	}
	input := lib.SendMailInput{
		From:     os.Getenv("MAIL_FROM"),
		FromName: os.Getenv("MAIL_FROM_NAME"),
		To:       []string{user.Email},
		Subject:  fmt.Sprintf("Payment confirmed for %s", room.Title),
		Body: fmt.Sprintf(
			"Hi %s,\n\nYour payment of %s %.2f for %s (%d months) has been confirmed.\nReference: %s\n\nYou can now generate your tenancy agreement from your dashboard.\n",
			user.Name, txn.Currency, txn.Amount, room.Title, txn.Duration, txn.Reference,
		),
	}
	if err := mailer.NewMailerMessage(&input); err != nil {
		log.Printf("Could not queue confirmation email for %s: %s\n", user.Email, err.Error())
	}
}
