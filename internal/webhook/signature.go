package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Sign returns the signature of a delivery: an HMAC-SHA256 over
// "<unix timestamp>.<payload>" keyed by secret. Binding the timestamp lets
// receivers reject replayed deliveries.
func Sign(payload []byte, timestamp int64, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte{'.'})
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature matches Sign(payload, timestamp, secret).
func VerifySignature(payload []byte, timestamp int64, signature, secret string) bool {
	expected := Sign(payload, timestamp, secret)
	return hmac.Equal([]byte(signature), []byte(expected))
}
