package main

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"

	"hbs/src/controllers"
	"hbs/src/db"
	"hbs/src/models"
	"hbs/src/types"
	"hbs/src/workflow"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/tidwall/gjson"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type TestSuite struct {
	suite.Suite
	DB    *gorm.DB
	Mock  sqlmock.Sqlmock
	Token *string
}

// authMiddleware is a lighter stand-in for middlewares.AuthMiddleware that
// skips the user lookup so handlers can be exercised against the mock db.
func authMiddleware(ctx *gin.Context) {
	bearerToken := ctx.Request.Header.Get("Authorization")
	if !strings.HasPrefix(bearerToken, "Bearer") {
		ctx.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	reqToken := strings.Split(bearerToken, " ")[1]
	if reqToken == "" {
		ctx.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	claims := &types.Claims{}
	tkn, err := jwt.ParseWithClaims(reqToken, claims, func(t *jwt.Token) (any, error) {
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil || !tkn.Valid {
		ctx.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	uid, err := strconv.Atoi(claims.Subject)
	if err != nil {
		ctx.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	ctx.Set("id", uint(uid))
	ctx.Set("email", claims.Email)
	ctx.Set("role", claims.Role)
}

func (s *TestSuite) SetupSuite() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("phonedigits", phoneDigitsValidatorFunc)
		v.RegisterValidation("matricno", matricNoValidatorFunc)
	}

	d, mock := NewMockDB()
	db.NewDB(d)
	s.DB = d
	s.Mock = mock

	user := models.User{
		ID:    1,
		Email: "someone@example.com",
		Name:  "Test Tenant",
		Role:  "tenant",
	}
	token, err := controllers.NewSessionToken(&user)
	if err != nil {
		log.Fatalf("Error generating session token: %s\n", err.Error())
	}
	s.Token = &token
}

func (s *TestSuite) TearDownSuite() {
	inner, err := s.DB.DB()
	if err != nil {
		log.Printf("Error accessing inner db instance: %s\n", err.Error())
		return
	}
	inner.Close()
}

func NewMockDB() (*gorm.DB, sqlmock.Sqlmock) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening a stub database connection", err)
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}))
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening gorm database", err)
	}

	return gormDB, mock
}

func (s *TestSuite) TestPingRoute() {
	router := setupRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 200, w.Code)
}

func (s *TestSuite) TestMaintenanceMode() {
	os.Setenv("MAINTENANCE_MODE", "true")
	defer os.Setenv("MAINTENANCE_MODE", "false")

	router := setupRouter()
	router = maintenanceModeMiddleware(router)
	apiv1Group(router)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 503, w.Code)
}

func (s *TestSuite) TestAuthRoutes() {
	router := setupRouter()
	guestAuthRoutes(router)

	s.Run("Should reject an incomplete registration with 400", func() {
		jbody := map[string]any{
			"email": "someone@example.com",
		}
		sbody, _ := json.Marshal(&jbody)
		w := httptest.NewRecorder()
		registerReq, _ := http.NewRequest("POST", "/api/v1/register", strings.NewReader(string(sbody)))
		router.ServeHTTP(w, registerReq)

		assert.Equal(s.T(), 400, w.Code)
		rbytes, err := io.ReadAll(w.Body)
		assert.Nil(s.T(), err)
		assert.Greaterf(s.T(), len(rbytes), 0, "Empty response")
	})

	s.Run("Should reject a login without a password with 400", func() {
		jbody := map[string]any{
			"email": "someone@example.com",
		}
		sbody, _ := json.Marshal(&jbody)
		w := httptest.NewRecorder()
		loginReq, _ := http.NewRequest("POST", "/api/v1/login", strings.NewReader(string(sbody)))
		router.ServeHTTP(w, loginReq)

		assert.Equal(s.T(), 400, w.Code)
	})
}

func (s *TestSuite) TestRooms() {
	router := setupRouter()
	roomRoutes(router)

	s.Run("Should return list of Room with 200 status", func() {
		rows := sqlmock.NewRows([]string{"id", "title", "slug", "thumbnail", "price", "available"}).
			AddRow(1, "Single Room", "single-room", "", 180000.0, true).
			AddRow(2, "Double Room", "double-room", "", 250000.0, true)
		s.Mock.ExpectQuery(`SELECT (.+) FROM "rooms"`).WillReturnRows(rows)

		w := httptest.NewRecorder()
		listReq, _ := http.NewRequest("GET", "/api/v1/rooms", nil)
		router.ServeHTTP(w, listReq)

		assert.Equal(s.T(), 200, w.Code)
		rbytes, err := io.ReadAll(w.Body)
		assert.Nil(s.T(), err)
		sjson := string(rbytes)
		assert.Equal(s.T(), int64(2), gjson.Get(sjson, "count").Int())
		assert.Equal(s.T(), "Single Room", gjson.Get(sjson, "data.0.title").String())
	})

	s.Run("Should return 404 for a missing room", func() {
		s.Mock.ExpectQuery(`SELECT (.+) FROM "rooms"`).WillReturnError(gorm.ErrRecordNotFound)

		w := httptest.NewRecorder()
		detailReq, _ := http.NewRequest("GET", "/api/v1/rooms/99", nil)
		router.ServeHTTP(w, detailReq)

		assert.Equal(s.T(), 404, w.Code)
		rbytes, err := io.ReadAll(w.Body)
		assert.Nil(s.T(), err)
		errMsg := gjson.Get(string(rbytes), "error").String()
		assert.Equal(s.T(), "room not found", errMsg)
	})
}

func (s *TestSuite) TestBookings() {
	router := setupRouter()
	apiv1 := apiv1Group(router)
	apiv1.Use(authMiddleware)
	bookingHandlers(apiv1)

	token := *s.Token

	s.Run("Should reject booking requests without a token", func() {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/v1/rooms/1/book", strings.NewReader(`{"duration":6}`))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 401, w.Code)
	})

	s.Run("Should reject a zero duration with 400", func() {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/v1/rooms/1/book", strings.NewReader(`{"duration":0}`))
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
		rbytes, err := io.ReadAll(w.Body)
		assert.Nil(s.T(), err)
		errMsg := gjson.Get(string(rbytes), "error").String()
		assert.NotNil(s.T(), errMsg)
	})

	s.Run("Should return 404 for an unknown booking session", func() {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/transactions/TXN-UNKNOWN/status", nil)
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 404, w.Code)
	})

	s.Run("Should hide another tenant's booking session", func() {
		ctrl := workflow.New(nil, nil)
		bookingWorkflows.Store("TXN-FOREIGN00001", &bookingSession{userId: 42, ctrl: ctrl})
		defer bookingWorkflows.Delete("TXN-FOREIGN00001")

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/transactions/TXN-FOREIGN00001/status", nil)
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
		router.ServeHTTP(w, req)
		assert.Equal(s.T(), 404, w.Code)

		w = httptest.NewRecorder()
		req, _ = http.NewRequest("POST", "/api/v1/transactions/TXN-FOREIGN00001/reset", nil)
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
		router.ServeHTTP(w, req)
		assert.Equal(s.T(), 404, w.Code)

		_, ok := bookingWorkflows.Load("TXN-FOREIGN00001")
		assert.True(s.T(), ok, "foreign session must survive a reset attempt")
	})

	s.Run("Should report the owner's session status", func() {
		ctrl := workflow.New(nil, nil)
		bookingWorkflows.Store("TXN-OWNED0000001", &bookingSession{userId: 1, ctrl: ctrl})
		defer bookingWorkflows.Delete("TXN-OWNED0000001")

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/transactions/TXN-OWNED0000001/status", nil)
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 200, w.Code)
		rbytes, err := io.ReadAll(w.Body)
		assert.Nil(s.T(), err)
		assert.Equal(s.T(), "booking", gjson.Get(string(rbytes), "phase").String())
	})
}

func (s *TestSuite) TestTransactions() {
	router := setupRouter()
	apiv1 := apiv1Group(router)
	apiv1.Use(authMiddleware)
	transactionHandlers(apiv1)

	token := *s.Token

	s.Run("Should return the tenant transaction history", func() {
		rows := sqlmock.NewRows([]string{"id", "reference", "description", "duration", "currency", "amount", "status", "booking_id"}).
			AddRow("0d9b28aa-6a86-43f7-bdb8-0a23b61ec222", "TXN-A1B2C3D4E5F6", "6 month(s) rent for Single Room", 6, "NGN", 90000.0, "success", 1)
		s.Mock.ExpectQuery(`SELECT (.+) FROM "transactions"`).WillReturnRows(rows)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/transactions", nil)
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 200, w.Code)
		rbytes, err := io.ReadAll(w.Body)
		assert.Nil(s.T(), err)
		sjson := string(rbytes)
		assert.Equal(s.T(), "TXN-A1B2C3D4E5F6", gjson.Get(sjson, "data.0.reference").String())
		assert.Equal(s.T(), "success", gjson.Get(sjson, "data.0.status").String())
	})

	s.Run("Should reject history requests without a token", func() {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/transactions", nil)
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 401, w.Code)
	})
}

func (s *TestSuite) TestWebhook() {
	router := setupRouter()
	paystackWebhookRoute(router)

	orig := bookingConfirmation
	bookingConfirmation = func(string) {}
	defer func() { bookingConfirmation = orig }()

	s.Run("Should reject an unsigned payload", func() {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/v1/webhook/paystack", strings.NewReader(`{"event":"charge.success"}`))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("Should reject a payload signed with the wrong secret", func() {
		os.Setenv("PAYSTACK_SECRET_KEY", "sk_test_webhook")
		payload := `{"event":"charge.success","data":{"id":12345,"reference":"TXN-A1B2C3D4E5F6"}}`
		mac := hmac.New(sha512.New, []byte("sk_test_other"))
		mac.Write([]byte(payload))

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/v1/webhook/paystack", strings.NewReader(payload))
		req.Header.Set("x-paystack-signature", hex.EncodeToString(mac.Sum(nil)))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("Should settle a signed charge.success", func() {
		os.Setenv("PAYSTACK_SECRET_KEY", "sk_test_webhook")
		payload := `{"event":"charge.success","data":{"id":12345,"reference":"TXN-A1B2C3D4E5F6"}}`
		mac := hmac.New(sha512.New, []byte("sk_test_webhook"))
		mac.Write([]byte(payload))

		s.Mock.ExpectBegin()
		rows := sqlmock.NewRows([]string{"id", "booking_id", "reference", "status"}).
			AddRow("0d9b28aa-6a86-43f7-bdb8-0a23b61ec222", 1, "TXN-A1B2C3D4E5F6", "pending")
		s.Mock.ExpectQuery(`SELECT (.+) FROM "transactions"`).WillReturnRows(rows)
		s.Mock.ExpectExec(`UPDATE "transactions"`).WillReturnResult(sqlmock.NewResult(0, 1))
		s.Mock.ExpectExec(`UPDATE "bookings"`).WillReturnResult(sqlmock.NewResult(0, 1))
		s.Mock.ExpectCommit()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/v1/webhook/paystack", strings.NewReader(payload))
		req.Header.Set("x-paystack-signature", hex.EncodeToString(mac.Sum(nil)))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 200, w.Code)
		assert.Nil(s.T(), s.Mock.ExpectationsWereMet())
	})

	s.Run("Should not rewrite an already settled transaction", func() {
		os.Setenv("PAYSTACK_SECRET_KEY", "sk_test_webhook")
		payload := `{"event":"charge.success","data":{"id":12345,"reference":"TXN-A1B2C3D4E5F6"}}`
		mac := hmac.New(sha512.New, []byte("sk_test_webhook"))
		mac.Write([]byte(payload))

		s.Mock.ExpectBegin()
		rows := sqlmock.NewRows([]string{"id", "booking_id", "reference", "status"}).
			AddRow("0d9b28aa-6a86-43f7-bdb8-0a23b61ec222", 1, "TXN-A1B2C3D4E5F6", "success")
		s.Mock.ExpectQuery(`SELECT (.+) FROM "transactions"`).WillReturnRows(rows)
		s.Mock.ExpectCommit()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/v1/webhook/paystack", strings.NewReader(payload))
		req.Header.Set("x-paystack-signature", hex.EncodeToString(mac.Sum(nil)))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 200, w.Code)
		assert.Nil(s.T(), s.Mock.ExpectationsWereMet())
	})
}

func TestRunner(t *testing.T) {
	suite.Run(t, new(TestSuite))
}
