package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

const signaturePrefix = "v1,"

// VerifyPolarWebhookSignature checks the `webhook-signature` header against
// the raw request body. The header carries a base64 HMAC-SHA256 of the exact
// body bytes, prefixed with the literal "v1,". Comparison is constant-time.
func VerifyPolarWebhookSignature(payload []byte, signatureHeader, webhookSecret string) bool {
	sig := strings.TrimSpace(signatureHeader)
	secret := strings.TrimSpace(webhookSecret)
	if sig == "" || secret == "" {
		return false
	}

	sig = strings.TrimPrefix(sig, signaturePrefix)
	decodedSig, err := base64.StdEncoding.DecodeString(sig)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), decodedSig)
}
