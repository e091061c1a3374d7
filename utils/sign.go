package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"os"
)

// TableSignSecret signs the table codes printed on physical table stickers.
func TableSignSecret() string {
	secret := os.Getenv("TABLE_SIGN_SECRET")
	if secret == "" {
		secret = "change-me"
	}
	return secret
}

// SignTable computes the signature embedded in a table's QR code.
func SignTable(storeID, tableID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(storeID + ":" + tableID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyTableSign checks a caller-supplied table signature in constant time.
func VerifyTableSign(storeID, tableID, secret, sign string) bool {
	expected := SignTable(storeID, tableID, secret)
	if len(expected) != len(sign) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(sign)) == 1
}
