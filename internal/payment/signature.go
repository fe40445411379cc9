package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Signer authenticates payment confirmations. Both the client redirect and
// the provider webhook carry an HMAC-SHA256 over "orderID|paymentID" keyed
// with the shared secret; anything that fails the check is rejected before
// it can touch booking state.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

func (s *Signer) Sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(orderID + "|" + paymentID))

	return hex.EncodeToString(mac.Sum(nil))
}

func (s *Signer) Verify(orderID, paymentID, signature string) bool {
	expected := s.Sign(orderID, paymentID)

	return hmac.Equal([]byte(expected), []byte(signature))
}
