package controllers

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"os"
	"time"

	"hbs/src/db"
	"hbs/src/lib"
	"hbs/src/lib/mailer"
	"hbs/src/models"
	"hbs/src/types"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var jwtKey = []byte(os.Getenv("JWT_SECRET"))

const otpTTL = 10 * time.Minute

func AuthRegister(ctx *gin.Context) (status int, err error) {
	var body types.RegisterUserRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return http.StatusBadRequest, err
	}
	gdb := db.GetDb()
	var count int64
	if err := gdb.
		Model(&models.User{}).
		Where("email = ?", body.Email).
		Count(&count).
		Error; err != nil {
		return http.StatusBadRequest, err
	}
	if count > 0 {
		return http.StatusConflict, errors.New("email already registered")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("Error hashing password: %s\n", err.Error())
		return http.StatusInternalServerError, errors.New("could not complete registration")
	}
	user := models.User{
		Name:         body.Name,
		Email:        body.Email,
		Password:     string(hashed),
		Phone:        body.Phone,
		MatricNumber: body.MatricNumber,
		Institution:  body.Institution,
		Department:   body.Department,
		Level:        body.Level,
	}
	if err := gdb.Create(&user).Error; err != nil {
		log.Printf("Error creating user: %s\n", err.Error())
		return http.StatusBadRequest, errors.New("could not complete registration")
	}
	go func() {
		input := lib.SendMailInput{
			From:     os.Getenv("MAIL_FROM"),
			FromName: os.Getenv("MAIL_FROM_NAME"),
			To:       []string{user.Email},
			Subject:  "Welcome to your new home",
			Body:     fmt.Sprintf("Hi %s,\n\nYour account has been created. Browse available rooms and book your space.\n", user.Name),
		}
		if err := mailer.NewMailerMessage(&input); err != nil {
			log.Printf("Could not queue welcome email for %s: %s\n", user.Email, err.Error())
		}
	}()
	return http.StatusCreated, nil
}

func AuthLogin(ctx *gin.Context) (token *string, status int, err error) {
	var body types.LoginRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return nil, http.StatusBadRequest, err
	}
	gdb := db.GetDb()
	var user models.User
	if err := gdb.
		Model(&models.User{}).
		Where(&models.User{Email: body.Email}).
		First(&user).
		Error; err != nil {
		log.Printf("Login failed for %s: %s\n", body.Email, err.Error())
		return nil, http.StatusUnauthorized, errors.New("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(body.Password)); err != nil {
		return nil, http.StatusUnauthorized, errors.New("invalid email or password")
	}
	err = gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Model(&models.User{}).
			Where("id", user.ID).
			Update("last_active", time.Now()).
			Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		log.Printf("Error logging in user [%d]: %s\n", user.ID, err.Error())
		return nil, http.StatusBadRequest, err
	}
	signed, err := NewSessionToken(&user)
	if err != nil {
		log.Printf("Error signing token for user [%d]: %s\n", user.ID, err.Error())
		return nil, http.StatusInternalServerError, errors.New("could not create session")
	}
	return &signed, http.StatusOK, nil
}

func NewSessionToken(user *models.User) (string, error) {
	now := time.Now()
	claims := types.Claims{
		Username: user.Name,
		Role:     user.Role,
		Email:    user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtKey)
}

func AuthForgotPassword(ctx *gin.Context) (status int, err error) {
	var body types.ForgotPasswordRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return http.StatusBadRequest, err
	}
	gdb := db.GetDb()
	var user models.User
	if err := gdb.
		Model(&models.User{}).
		Where(&models.User{Email: body.Email}).
		First(&user).
		Error; err != nil {
		// do not reveal whether the address exists
		return http.StatusOK, nil
	}
	otp, err := newOTP()
	if err != nil {
		return http.StatusInternalServerError, err
	}
	rd := lib.GetRedisClient()
	if err := rd.Set(context.Background(), fmt.Sprintf("otp:%s", user.Email), otp, otpTTL).Err(); err != nil {
		log.Printf("Could not store OTP for %s: %s\n", user.Email, err.Error())
		return http.StatusInternalServerError, errors.New("could not process request")
	}
	input := lib.SendMailInput{
		From:     os.Getenv("MAIL_FROM"),
		FromName: os.Getenv("MAIL_FROM_NAME"),
		To:       []string{user.Email},
		Subject:  "Your password reset code",
		Body:     fmt.Sprintf("Hi %s,\n\nYour one-time code is %s. It expires in 10 minutes.\n", user.Name, otp),
	}
	if err := mailer.NewMailerMessage(&input); err != nil {
		log.Printf("Could not queue OTP email for %s: %s\n", user.Email, err.Error())
		return http.StatusInternalServerError, errors.New("could not process request")
	}
	return http.StatusOK, nil
}

func AuthResetPassword(ctx *gin.Context) (status int, err error) {
	var body types.ResetPasswordRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return http.StatusBadRequest, err
	}
	rd := lib.GetRedisClient()
	key := fmt.Sprintf("otp:%s", body.Email)
	stored, err := rd.Get(context.Background(), key).Result()
	if err != nil {
		return http.StatusUnauthorized, errors.New("invalid or expired code")
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(body.OTP)) != 1 {
		return http.StatusUnauthorized, errors.New("invalid or expired code")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		return http.StatusInternalServerError, errors.New("could not reset password")
	}
	gdb := db.GetDb()
	if err := gdb.
		Model(&models.User{}).
		Where("email = ?", body.Email).
		Update("password", string(hashed)).
		Error; err != nil {
		log.Printf("Error resetting password for %s: %s\n", body.Email, err.Error())
		return http.StatusBadRequest, errors.New("could not reset password")
	}
	rd.Del(context.Background(), key)
	return http.StatusOK, nil
}

func AuthChangePassword(ctx *gin.Context) (status int, err error) {
	var body types.ChangePasswordRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return http.StatusBadRequest, err
	}
	userId := ctx.GetUint("id")
	gdb := db.GetDb()
	var user models.User
	if err := gdb.
		Model(&models.User{}).
		Where(&models.User{ID: userId}).
		First(&user).
		Error; err != nil {
		return http.StatusUnauthorized, errors.New("user not found")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(body.CurrentPassword)); err != nil {
		return http.StatusUnauthorized, errors.New("current password is incorrect")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		return http.StatusInternalServerError, errors.New("could not change password")
	}
	if err := gdb.
		Model(&models.User{}).
		Where(&models.User{ID: userId}).
		Update("password", string(hashed)).
		Error; err != nil {
		log.Printf("Error changing password for user [%d]: %s\n", userId, err.Error())
		return http.StatusBadRequest, errors.New("could not change password")
	}
	return http.StatusOK, nil
}

func newOTP() (string, error) {
	max := big.NewInt(1000000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
