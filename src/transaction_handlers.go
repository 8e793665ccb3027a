package main

import (
	"log"
	"net/http"

	"hbs/src/db"
	"hbs/src/models"
	"hbs/src/types"
	"hbs/src/utils"

	"github.com/gin-gonic/gin"
)

func transactionHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/transactions", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			filters := types.TransactionQueryFilters{
				Status: ctx.Query("status"),
				Search: ctx.Query("search"),
			}
			gdb := db.GetDb()
			q := gdb.
				Model(&models.Transaction{}).
				Joins("Booking").
				Where(`"Booking".user_id = ?`, userId)
			if filters.Status != "" {
				q = q.Where("transactions.status = ?", filters.Status)
			}
			if filters.Search != "" {
				q = q.Where("reference ILIKE ? OR description ILIKE ?", "%"+filters.Search+"%", "%"+filters.Search+"%")
			}
			var txns []models.Transaction
			if err := q.
				Preload("Booking.Room").
				Order("transactions.created_at desc").
				Find(&txns).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			data := make([]types.APIResponseTransaction, 0, len(txns))
			for i := range txns {
				data = append(data, transactionResponse(&txns[i]))
			}
			ctx.JSON(http.StatusOK, gin.H{"data": data, "count": len(data)})
		}).
		GET("/transactions/:reference", func(ctx *gin.Context) {
			var params types.ReferenceRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			userId := ctx.GetUint("id")
			gdb := db.GetDb()
			var txn models.Transaction
			if err := gdb.
				Model(&models.Transaction{}).
				Joins("Booking").
				Where("reference = ?", params.Reference).
				Where(`"Booking".user_id = ?`, userId).
				Preload("Booking.Room").
				First(&txn).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": transactionResponse(&txn)})
		}).
		GET("/transactions/:reference/verify", func(ctx *gin.Context) {
			var params types.ReferenceRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			result, err := utils.GatewayVerifier{}.Verify(ctx, params.Reference)
			if err != nil {
				log.Printf("Error verifying transaction %s: %s\n", params.Reference, err.Error())
			}
			ctx.JSON(http.StatusOK, types.VerifyTransactionResponse{
				Status:            result.Status,
				TransactionStatus: result.TransactionStatus,
			})
		})
	return g
}

func transactionResponse(txn *models.Transaction) types.APIResponseTransaction {
	resp := types.APIResponseTransaction{
		Reference:   txn.Reference,
		Description: txn.Description,
		Duration:    txn.Duration,
		Amount:      txn.Amount,
		Status:      string(txn.Status),
		PaidAt:      txn.PaidAt,
		CreatedAt:   &txn.CreatedAt,
	}
	if txn.Booking.Room != nil {
		room := utils.RoomResponse(txn.Booking.Room)
		resp.Room = room
	}
	return resp
}
