package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path"

	"hbs/src/controllers"
	"hbs/src/db"
	awslib "hbs/src/lib/aws"
	"hbs/src/models"
	"hbs/src/types"
	"hbs/src/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const maxDocumentSize = 5 << 20

var allowedDocumentTypes = map[string]string{
	"image/jpeg":      ".jpeg",
	"image/png":       ".png",
	"application/pdf": ".pdf",
}

func accountHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/profile", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			gdb := db.GetDb()
			var user models.User
			if err := gdb.
				Model(&models.User{}).
				Where(&models.User{ID: userId}).
				First(&user).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": user})
		}).
		PUT("/profile", func(ctx *gin.Context) {
			var body types.UpdateProfileRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			gdb := db.GetDb()
			err := gdb.Transaction(func(tx *gorm.DB) error {
				updates := models.User{
					Name:         body.Name,
					Phone:        body.Phone,
					MatricNumber: body.MatricNumber,
					Institution:  body.Institution,
					Department:   body.Department,
					Level:        body.Level,
					NextOfKin:    body.NextOfKin,
					NextOfKinTel: body.NextOfKinTel,
				}
				if err := tx.
					Model(&models.User{}).
					Where(&models.User{ID: userId}).
					Updates(&updates).
					Error; err != nil {
					return err
				}
				return nil
			})
			if err != nil {
				log.Printf("Could not update profile for user [%d]: %s\n", userId, err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var user models.User
			gdb.Model(&models.User{}).Where(&models.User{ID: userId}).First(&user)
			ctx.JSON(http.StatusOK, gin.H{"data": user})
		}).
		PUT("/password", func(ctx *gin.Context) {
			status, err := controllers.AuthChangePassword(ctx)
			if err != nil {
				ctx.JSON(status, gin.H{"error": err.Error()})
				return
			}
			ctx.Status(status)
		}).
		POST("/profile/documents", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			file, err := ctx.FormFile("document")
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			kind := ctx.PostForm("kind")
			if kind != "identity" && kind != "signed_agreement" {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "kind must be identity or signed_agreement"})
				return
			}
			if file.Size > maxDocumentSize {
				ctx.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "document exceeds the 5MB limit"})
				return
			}
			contentType := file.Header.Get("Content-Type")
			ext, ok := allowedDocumentTypes[contentType]
			if !ok {
				ctx.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "only jpeg, png and pdf documents are accepted"})
				return
			}
			src, err := file.Open()
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			defer src.Close()
			bucket := os.Getenv("S3_ASSETS_BUCKET")
			key := fmt.Sprintf("documents/%d/%s%s", userId, kind, ext)
			url, err := awslib.S3UploadDocument(bucket, key, src, contentType)
			if err != nil {
				log.Printf("Error uploading document for user [%d]: %s\n", userId, err.Error())
				ctx.JSON(http.StatusBadGateway, gin.H{"error": "could not store document"})
				return
			}
			column := "identity_doc"
			if kind == "signed_agreement" {
				column = "signed_doc"
			}
			gdb := db.GetDb()
			if err := gdb.
				Model(&models.User{}).
				Where(&models.User{ID: userId}).
				Update(column, *url).
				Error; err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": gin.H{"url": *url}})
		}).
		POST("/agreements", func(ctx *gin.Context) {
			var body struct {
				Reference string `json:"reference" binding:"required"`
			}
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			agreement, err := utils.GenerateAgreement(userId, body.Reference)
			if err != nil {
				// business errors pass through as-is ("agreement already generated")
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": agreement})
		}).
		GET("/agreements", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			gdb := db.GetDb()
			var agreements []models.Agreement
			if err := gdb.
				Model(&models.Agreement{}).
				Where(&models.Agreement{UserID: userId}).
				Preload("Booking").
				Preload("Booking.Room").
				Order("created_at desc").
				Find(&agreements).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": agreements, "count": len(agreements)})
		})
	return g
}

// agreementTemplateRoute serves the blank tenancy agreement.
func agreementTemplateRoute(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.GET("/agreements/template", func(ctx *gin.Context) {
		assetsDir := os.Getenv("ASSETS_DIR")
		if assetsDir == "" {
			assetsDir = "assets"
		}
		filepath := path.Join(assetsDir, "tenancy-agreement.pdf")
		if _, err := os.Stat(filepath); err != nil {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "agreement template not available"})
			return
		}
		ctx.FileAttachment(filepath, "tenancy-agreement.pdf")
	})
	return apiv1
}
