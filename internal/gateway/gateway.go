// Package gateway wraps the external payment provider. The engine never
// talks to the provider synchronously inside a transaction: Initiate hands
// back a reference and a redirect URL, and the provider later confirms by
// calling the signed webhook that PaymentService verifies here.
package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

type PaymentIntent struct {
	Reference   string `json:"reference"`
	RedirectURL string `json:"redirect_url"`
}

type Gateway interface {
	Initiate(userID string, kind string, amount int64) (PaymentIntent, error)
	VerifyCallback(reference string, amount int64, status, signature string) bool
}

// HMACGateway signs and verifies callbacks with a shared secret. The
// payload under the MAC is reference|amount|status.
type HMACGateway struct {
	secret  []byte
	baseURL string
}

func NewHMACGateway(secret, baseURL string) *HMACGateway {
	return &HMACGateway{secret: []byte(secret), baseURL: baseURL}
}

func (g *HMACGateway) Initiate(userID, kind string, amount int64) (PaymentIntent, error) {
	reference := "pay_" + uuid.NewString()
	return PaymentIntent{
		Reference:   reference,
		RedirectURL: fmt.Sprintf("%s/checkout/%s", g.baseURL, reference),
	}, nil
}

func (g *HMACGateway) VerifyCallback(reference string, amount int64, status, signature string) bool {
	expected := g.Sign(reference, amount, status)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Sign is exported for tests and for the sandbox provider stub.
func (g *HMACGateway) Sign(reference string, amount int64, status string) string {
	mac := hmac.New(sha256.New, g.secret)
	fmt.Fprintf(mac, "%s|%d|%s", reference, amount, status)
	return hex.EncodeToString(mac.Sum(nil))
}
