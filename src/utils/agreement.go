package utils

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"path"
	"text/template"
	"time"

	"hbs/src/db"
	awslib "hbs/src/lib/aws"
	"hbs/src/models"
	"hbs/src/types"

	"github.com/yeqown/go-qrcode"
	"gorm.io/gorm"
)

const agreementTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Tenancy Agreement {{.Reference}}</title></head>
<body>
<h1>Tenancy Agreement</h1>
<p>This agreement is made on {{.Date}} between the Management and:</p>
<table>
<tr><td>Tenant</td><td>{{.Name}}</td></tr>
<tr><td>Email</td><td>{{.Email}}</td></tr>
<tr><td>Phone</td><td>{{.Phone}}</td></tr>
<tr><td>Matric Number</td><td>{{.MatricNumber}}</td></tr>
<tr><td>Institution</td><td>{{.Institution}}</td></tr>
<tr><td>Room</td><td>{{.Room}}</td></tr>
<tr><td>Duration</td><td>{{.Duration}} months</td></tr>
<tr><td>Rent Paid</td><td>{{.Currency}} {{.Amount}}</td></tr>
<tr><td>Payment Reference</td><td>{{.Reference}}</td></tr>
</table>
<p>The tenancy runs for the stated duration from the date of this agreement.
Rent is non-refundable once the tenancy has commenced.</p>
<img src="{{.QRCodeURL}}" alt="payment reference" width="120" height="120"/>
</body>
</html>
`

// GenerateAgreement renders the tenancy agreement for a settled booking and
// uploads it. A booking gets exactly one agreement.
func GenerateAgreement(userId uint, reference string) (*models.Agreement, error) {
	gdb := db.GetDb()
	var txn models.Transaction
	if err := gdb.
		Model(&models.Transaction{}).
		Where("reference = ?", reference).
		Preload("Booking").
		Preload("Booking.Room").
		First(&txn).
		Error; err != nil {
		return nil, errors.New("transaction not found")
	}
	if txn.Booking.UserID != userId {
		return nil, errors.New("transaction not found")
	}
	if txn.Status != types.TRANSACTION_SUCCESS {
		return nil, errors.New("payment not confirmed for this booking")
	}
	var existing models.Agreement
	err := gdb.
		Model(&models.Agreement{}).
		Where(&models.Agreement{BookingID: txn.BookingID}).
		First(&existing).
		Error
	if err == nil {
		return nil, errors.New("agreement already generated")
	}

	var user models.User
	if err := gdb.
		Model(&models.User{}).
		Where(&models.User{ID: userId}).
		First(&user).
		Error; err != nil {
		return nil, err
	}

	tempdir := os.Getenv("TEMP_DIR")
	if tempdir == "" {
		tempdir = os.TempDir()
	}

	qrc, err := qrcode.New(reference)
	if err != nil {
		return nil, err
	}
	qrPath := path.Join(tempdir, fmt.Sprintf("%s.jpeg", reference))
	if err := qrc.Save(qrPath); err != nil {
		log.Printf("Could not save qrcode to file [%s]: %s\n", qrPath, err.Error())
		return nil, err
	}
	qrURL, err := awslib.S3UploadAsset(fmt.Sprintf("qrcodes/%s.jpeg", reference), qrPath)
	if err != nil {
		log.Printf("Error uploading qrcode to S3 bucket: %s\n", err.Error())
		return nil, err
	}

	roomTitle := ""
	if txn.Booking.Room != nil {
		roomTitle = txn.Booking.Room.Title
	}
	tmpl := template.Must(template.New("agreement").Parse(agreementTemplate))
	var buf bytes.Buffer
	err = tmpl.Execute(&buf, map[string]any{
		"Reference":    txn.Reference,
		"Date":         time.Now().Format("2 January 2006"),
		"Name":         user.Name,
		"Email":        user.Email,
		"Phone":        user.Phone,
		"MatricNumber": user.MatricNumber,
		"Institution":  user.Institution,
		"Room":         roomTitle,
		"Duration":     txn.Duration,
		"Currency":     txn.Currency,
		"Amount":       fmt.Sprintf("%.2f", txn.Amount),
		"QRCodeURL":    *qrURL,
	})
	if err != nil {
		return nil, err
	}

	bucket := os.Getenv("S3_ASSETS_BUCKET")
	docURL, err := awslib.S3UploadDocument(bucket, fmt.Sprintf("agreements/%s.html", reference), &buf, "text/html")
	if err != nil {
		log.Printf("Error uploading agreement to S3 bucket: %s\n", err.Error())
		return nil, err
	}

	now := time.Now()
	agreement := models.Agreement{
		UserID:      userId,
		BookingID:   txn.BookingID,
		Reference:   reference,
		URL:         *docURL,
		GeneratedAt: &now,
	}
	err = gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&agreement).Error; err != nil {
			return err
		}
		if err := tx.
			Model(&models.User{}).
			Where(&models.User{ID: userId}).
			Update("agreement_url", *docURL).
			Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &agreement, nil
}
