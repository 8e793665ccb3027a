package mailer

import (
	"encoding/json"
	"fmt"
	"os"

	"hbs/src/lib"
	"hbs/src/types"
	"hbs/src/utils"
)

func NewMailerMessage(input *lib.SendMailInput) error {
	emailQueue := os.Getenv("EMAIL_QUEUE")
	apiEnv := os.Getenv("API_ENV")
	emailBody := &types.JSONB{
		"from":      input.From,
		"from-name": input.FromName,
		"to":        input.To,
		"cc":        input.Cc,
		"bcc":       input.Bcc,
		"reply-to":  input.ReplyTo,
		"body":      input.Body,
		"html":      input.Html,
		"subject":   input.Subject,
	}
	if apiEnv == "local" {
		if err := lib.KafkaProduceMessage("emails", utils.WithSuffix(emailQueue), *emailBody); err != nil {
			return fmt.Errorf("error sending message to queue: %s", err.Error())
		}
		return nil
	}
	body, err := json.Marshal(&emailBody)
	if err != nil {
		return err
	}
	if err := lib.SQSProduceMessage(utils.WithSuffix(emailQueue), string(body)); err != nil {
		return fmt.Errorf("error sending message to queue: %s", err.Error())
	}
	return nil
}

// DeliverQueuedMessage decodes a queued mail job and sends it over SMTP.
func DeliverQueuedMessage(message string) error {
	var body map[string]any
	if err := json.Unmarshal([]byte(message), &body); err != nil {
		return err
	}
	input := lib.SendMailInput{
		From:     str(body["from"]),
		FromName: str(body["from-name"]),
		To:       strs(body["to"]),
		Cc:       strs(body["cc"]),
		Bcc:      strs(body["bcc"]),
		ReplyTo:  str(body["reply-to"]),
		Subject:  str(body["subject"]),
		Body:     str(body["body"]),
	}
	if html, ok := body["html"].(bool); ok {
		input.Html = html
	}
	return lib.SendMail(&input)
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func strs(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
