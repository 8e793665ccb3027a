package main

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"hbs/src/db"
	"hbs/src/models"
	"hbs/src/types"
	"hbs/src/utils"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

func roomRoutes(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.
		GET("/rooms", func(ctx *gin.Context) {
			filters := types.RoomQueryFilters{
				Available: ctx.Query("available"),
				MinPrice:  ctx.Query("min_price"),
				MaxPrice:  ctx.Query("max_price"),
				Search:    ctx.Query("search"),
			}
			gdb := db.GetDb()
			q := gdb.Model(&models.Room{})
			if filters.Available != "" {
				available, err := strconv.ParseBool(filters.Available)
				if err != nil {
					ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				q = q.Where("available = ?", available)
			}
			if filters.MinPrice != "" {
				min, err := strconv.ParseFloat(filters.MinPrice, 64)
				if err != nil {
					ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				q = q.Where("price >= ?", min)
			}
			if filters.MaxPrice != "" {
				max, err := strconv.ParseFloat(filters.MaxPrice, 64)
				if err != nil {
					ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				q = q.Where("price <= ?", max)
			}
			if filters.Search != "" {
				q = q.Where("title ILIKE ? OR features ILIKE ?", "%"+filters.Search+"%", "%"+filters.Search+"%")
			}
			var rooms []models.Room
			if err := q.Order("price asc").Find(&rooms).Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			data := make([]types.APIResponseRoom, 0, len(rooms))
			for i := range rooms {
				data = append(data, utils.RoomResponse(&rooms[i]))
			}
			ctx.JSON(http.StatusOK, gin.H{"data": data, "count": len(data)})
		}).
		GET("/rooms/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			gdb := db.GetDb()
			var room models.Room
			if err := gdb.
				Model(&models.Room{}).
				Where(&models.Room{ID: params.ID}).
				First(&room).
				Error; err != nil {
				err := errors.New("room not found")
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": utils.RoomResponse(&room)})
		})
	return apiv1
}

func roomAdminHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/rooms", func(ctx *gin.Context) {
			var body types.CreateRoomRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			available := true
			if body.Available != nil {
				available = *body.Available
			}
			images := types.JSONBArray{}
			for _, img := range body.Images {
				images = append(images, img)
			}
			room := models.Room{
				Title:     body.Title,
				Slug:      slug.Make(body.Title),
				Price:     body.Price,
				Features:  body.Features,
				Thumbnail: body.Thumbnail,
				Available: available,
				Images:    images,
			}
			gdb := db.GetDb()
			if err := gdb.Create(&room).Error; err != nil {
				log.Printf("Error creating room: %s\n", err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": gin.H{"id": room.ID}})
		}).
		PUT("/rooms/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.CreateRoomRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			gdb := db.GetDb()
			err := gdb.Transaction(func(tx *gorm.DB) error {
				updates := models.Room{
					Title:    body.Title,
					Price:    body.Price,
					Features: body.Features,
				}
				if body.Thumbnail != "" {
					updates.Thumbnail = body.Thumbnail
				}
				if err := tx.
					Model(&models.Room{}).
					Where(&models.Room{ID: params.ID}).
					Updates(&updates).
					Error; err != nil {
					return err
				}
				if body.Available != nil {
					if err := tx.
						Model(&models.Room{}).
						Where(&models.Room{ID: params.ID}).
						Update("available", *body.Available).
						Error; err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				log.Printf("Could not update room [%d]: %s\n", params.ID, err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "Error while processing request"})
				return
			}
			ctx.Status(http.StatusNoContent)
		})
	return g
}
