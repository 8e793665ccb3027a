package aws

import (
	"context"
	"log"

	"hbs/src/lib"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type Handler func(message string) error

type SQSConsumer struct {
	Name    string
	handler Handler
}

func NewSQSConsumer(queue string, handler Handler) *SQSConsumer {
	c := SQSConsumer{
		Name:    queue,
		handler: handler,
	}
	return &c
}

func (s *SQSConsumer) Listen() {
	go func() {
		qname := s.Name
		client := lib.AWSGetSQSClient()
		qurl, err := client.GetQueueUrl(context.TODO(), &sqs.GetQueueUrlInput{
			QueueName: aws.String(qname),
		})
		if err != nil {
			log.Printf("Failed to retrieve queue URL for %s: %s\n", qname, err.Error())
			return
		}
		for {
			out, err := client.ReceiveMessage(context.TODO(), &sqs.ReceiveMessageInput{
				QueueUrl:            qurl.QueueUrl,
				MaxNumberOfMessages: 10,
				WaitTimeSeconds:     20,
			})
			if err != nil {
				log.Printf("Failed to receive messages from %s: %s\n", qname, err.Error())
				return
			}
			for _, msg := range out.Messages {
				if msg.Body == nil {
					continue
				}
				if err := s.handler(*msg.Body); err != nil {
					log.Printf("Handler failed for message %s: %s\n", aws.ToString(msg.MessageId), err.Error())
					continue
				}
				_, err := client.DeleteMessage(context.TODO(), &sqs.DeleteMessageInput{
					QueueUrl:      qurl.QueueUrl,
					ReceiptHandle: msg.ReceiptHandle,
				})
				if err != nil {
					log.Printf("Failed to delete message %s: %s\n", aws.ToString(msg.MessageId), err.Error())
				}
			}
		}
	}()
}
