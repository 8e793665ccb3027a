package lib

import (
	"errors"
	"log"
	"os"

	paystack "github.com/rpip/paystack-go"
)

var paystackClient *paystack.Client

func GetPaystackClient() *paystack.Client {
	if paystackClient != nil {
		return paystackClient
	}
	apiKey := os.Getenv("PAYSTACK_SECRET_KEY")
	pc := paystack.NewClient(apiKey, nil)
	paystackClient = pc

	return pc
}

// NewPaystackClient Replace gateway instance with custom client implementation
func NewPaystackClient(c *paystack.Client) {
	paystackClient = c
}

func PaystackPublicKey() string {
	return os.Getenv("PAYSTACK_PUBLIC_KEY")
}

// PaystackInitializeTransaction registers the reference with the gateway ahead
// of the inline widget. Amount is in kobo.
func PaystackInitializeTransaction(email string, reference string, amountKobo float32, metadata map[string]any) (string, error) {
	pc := GetPaystackClient()
	req := &paystack.TransactionRequest{
		Email:       email,
		Amount:      amountKobo,
		Reference:   reference,
		Currency:    "NGN",
		CallbackURL: os.Getenv("PAYSTACK_CALLBACK_URL"),
		Metadata:    metadata,
	}
	resp, err := pc.Transaction.Initialize(req)
	if err != nil {
		log.Printf("[Paystack] Error initializing transaction %s: %s\n", reference, err.Error())
		return "", err
	}
	url, ok := resp["authorization_url"].(string)
	if !ok {
		return "", errors.New("no authorization_url in gateway response")
	}
	return url, nil
}

func PaystackVerifyTransaction(reference string) (*paystack.Transaction, error) {
	pc := GetPaystackClient()
	txn, err := pc.Transaction.Verify(reference)
	if err != nil {
		log.Printf("[Paystack] Error verifying transaction %s: %s\n", reference, err.Error())
		return nil, err
	}
	return txn, nil
}
