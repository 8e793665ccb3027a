package boot

import (
	"log"
	"os"
	"time"

	"hbs/src/config"
	"hbs/src/db"
	"hbs/src/lib"
	awslib "hbs/src/lib/aws"
	"hbs/src/lib/mailer"
	"hbs/src/models"
	"hbs/src/utils"

	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	db := db.GetDb()

	err := db.AutoMigrate(
		&models.User{},
		&models.Room{},
		&models.Booking{},
		&models.Transaction{},
		&models.Agreement{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	return db
}

func InitScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Fatalf("error initializing scheduler: %s", err.Error())
	}
	if _, err := lib.CreateCronJob(utils.ExpireStaleBookings, 5*time.Minute); err != nil {
		log.Printf("Could not schedule booking expiry job: %s\n", err.Error())
	}
	sched.Start()
}

func InitBroker() {
	emailQueue := utils.WithSuffix(os.Getenv("EMAIL_QUEUE"))
	apiEnv := os.Getenv("API_ENV")
	if apiEnv == "local" {
		go lib.KafkaCreateTopics(emailQueue, utils.WithSuffix("payment-events"))
		lib.KafkaConsume("mailer", func(topic string, value []byte) {
			if err := mailer.DeliverQueuedMessage(string(value)); err != nil {
				log.Printf("Failed to deliver queued mail: %s\n", err.Error())
			}
		}, emailQueue)
		return
	}
	consumer := awslib.NewSQSConsumer(emailQueue, mailer.DeliverQueuedMessage)
	consumer.Listen()
}

// DownloadAgreementTemplateFromS3 fetches the blank tenancy agreement served
// at /agreements/template.
func DownloadAgreementTemplateFromS3() {
	if err := awslib.S3DownloadAsset(config.AGREEMENT_TEMPLATE_KEY); err != nil {
		log.Printf("Could not download agreement template: %s\n", err.Error())
	}
}
