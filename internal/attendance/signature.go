package attendance

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Sign returns the hex HMAC-SHA256 a presence device sends with a mark request.
func Sign(secret []byte, memberID int32, date string) string {
	mac := hmac.New(sha256.New, secret)
	fmt.Fprintf(mac, "%d%s", memberID, date)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks signature against the expected MAC in constant time.
// Undecodable signatures are rejected.
func VerifySignature(secret []byte, memberID int32, date, signature string) bool {
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	fmt.Fprintf(mac, "%d%s", memberID, date)
	return hmac.Equal(mac.Sum(nil), got)
}
