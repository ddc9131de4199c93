package ai

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// VerifyHMAC verifies a sha256 HMAC hex signature against payload and secret
func VerifyHMAC(secret string, payload []byte, signatureHex string) bool {
	if secret == "" || signatureHex == "" {
		return false
	}
	signatureHex = strings.TrimPrefix(strings.ToLower(signatureHex), "sha256=")
	return hmac.Equal([]byte(SignHMAC(secret, payload)), []byte(signatureHex))
}

// VerifySecret compares a presented shared secret in constant time
func VerifySecret(expected, presented string) bool {
	if expected == "" || presented == "" {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(presented))
}

// SignHMAC returns the hex sha256 HMAC of payload
func SignHMAC(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
