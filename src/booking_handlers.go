package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"hbs/src/db"
	"hbs/src/lib"
	"hbs/src/models"
	"hbs/src/types"
	"hbs/src/utils"
	"hbs/src/workflow"

	"github.com/gin-gonic/gin"
)

// bookingSession ties a purchase workflow to the tenant who opened it so no
// other account can drive it by guessing the reference.
type bookingSession struct {
	userId uint
	ctrl   *workflow.Controller
}

// Active purchase workflows keyed by transaction reference. One per booking
// session; removed on reset.
var bookingWorkflows sync.Map

// loadBookingSession resolves a reference for the requesting tenant. A
// reference owned by someone else looks the same as a missing one.
func loadBookingSession(ctx *gin.Context, reference string) (*bookingSession, bool) {
	value, ok := bookingWorkflows.Load(reference)
	if !ok {
		return nil, false
	}
	sess := value.(*bookingSession)
	if sess.userId != ctx.GetUint("id") {
		return nil, false
	}
	return sess, true
}

func bookingHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/rooms/:id/book", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.BookRoomRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			email := ctx.GetString("email")

			ctrl := workflow.New(
				&utils.RoomReserver{UserID: userId, Email: email, Duration: body.Duration},
				utils.GatewayVerifier{},
				workflow.WithNotify(utils.WorkflowUpdates(userId)),
				workflow.WithRedirect(scheduleRedirect(userId)),
			)
			ctrl.Init(lib.PaystackPublicKey())

			if err := ctrl.Reserve(ctx, params.ID); err != nil {
				// the backend message goes through unmodified
				ctx.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
				return
			}
			res := ctrl.Reservation()
			bookingWorkflows.Store(res.Reference, &bookingSession{userId: userId, ctrl: ctrl})
			ctx.JSON(http.StatusOK, gin.H{
				"status": "success",
				"transaction": gin.H{
					"reference":   res.Reference,
					"description": res.Description,
					"duration":    res.Duration,
					"amount":      res.Amount,
					"status":      res.Status,
				},
				"data": types.PaymentInitData{
					GatewayPublicKey: res.Init.PublicKey,
					Email:            res.Init.Email,
					Amount:           res.Init.Amount,
					Reference:        res.Init.Reference,
				},
			})
		}).
		POST("/transactions/:reference/callback", func(ctx *gin.Context) {
			var params types.ReferenceRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body struct {
				Status string `json:"status" binding:"required"`
			}
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			sess, ok := loadBookingSession(ctx, params.Reference)
			if !ok {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "no active booking session for reference"})
				return
			}
			ctrl := sess.ctrl
			// verification polls with its own delays; do not block the request
			go ctrl.HandlePaymentCallback(context.Background(), workflow.PaymentCallback{
				Reference: params.Reference,
				Status:    body.Status,
			})
			ctx.JSON(http.StatusAccepted, gin.H{"phase": ctrl.Phase()})
		}).
		GET("/transactions/:reference/status", func(ctx *gin.Context) {
			var params types.ReferenceRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			sess, ok := loadBookingSession(ctx, params.Reference)
			if !ok {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "no active booking session for reference"})
				return
			}
			ctrl := sess.ctrl
			userId := ctx.GetUint("id")
			rd := lib.GetRedisClient()
			var messages []string
			var redirect string
			if rd != nil {
				messages = rd.LRange(ctx, fmt.Sprintf("wf:%d:messages", userId), 0, -1).Val()
				redirect = rd.Get(ctx, fmt.Sprintf("wf:%d:redirect", userId)).Val()
			}
			ctx.JSON(http.StatusOK, gin.H{
				"phase":    ctrl.Phase(),
				"attempts": ctrl.Attempts(),
				"messages": messages,
				"redirect": redirect,
			})
		}).
		POST("/transactions/:reference/reset", func(ctx *gin.Context) {
			var params types.ReferenceRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			sess, ok := loadBookingSession(ctx, params.Reference)
			if !ok {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "no active booking session for reference"})
				return
			}
			sess.ctrl.Reset()
			bookingWorkflows.Delete(params.Reference)
			userId := ctx.GetUint("id")
			if rd := lib.GetRedisClient(); rd != nil {
				rd.Del(ctx, fmt.Sprintf("wf:%d:messages", userId), fmt.Sprintf("wf:%d:redirect", userId))
			}
			ctx.Status(http.StatusNoContent)
		}).
		GET("/bookings", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			gdb := db.GetDb()
			var bookings []models.Booking
			if err := gdb.
				Model(&models.Booking{}).
				Where(&models.Booking{UserID: userId}).
				Preload("Room").
				Preload("Transaction").
				Order("created_at desc").
				Find(&bookings).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": bookings, "count": len(bookings)})
		})
	return g
}

// scheduleRedirect records the post-completion destination for the session.
func scheduleRedirect(userId uint) func() {
	return func() {
		rd := lib.GetRedisClient()
		if rd == nil {
			return
		}
		rd.Set(context.Background(), fmt.Sprintf("wf:%d:redirect", userId), "/transactions", 0)
	}
}
