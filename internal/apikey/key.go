// Package apikey issues and verifies the per-member credentials that gate mutations.
package apikey

import (
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// secretBytes is the amount of random key material per credential.
const secretBytes = 32

// Generate draws fresh key material from r and encodes it for memberID.
func Generate(r io.Reader, memberID int32) (string, error) {
	secret := make([]byte, secretBytes)
	if _, err := io.ReadFull(r, secret); err != nil {
		return "", fmt.Errorf("read key material: %w", err)
	}
	return Encode(memberID, secret), nil
}

// Encode renders base64url("{memberID}_{base64url(secret)}").
func Encode(memberID int32, secret []byte) string {
	inner := strconv.FormatInt(int64(memberID), 10) + "_" + base64.RawURLEncoding.EncodeToString(secret)
	return base64.RawURLEncoding.EncodeToString([]byte(inner))
}

// MemberOf recovers the member id embedded in a credential. It reports false for
// anything that is not a well-formed credential.
func MemberOf(credential string) (int32, bool) {
	if credential == "" {
		return 0, false
	}
	raw, err := base64.RawURLEncoding.DecodeString(credential)
	if err != nil {
		return 0, false
	}
	idPart, secretPart, ok := strings.Cut(string(raw), "_")
	if !ok || secretPart == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(idPart, 10, 32)
	if err != nil || id <= 0 {
		return 0, false
	}
	return int32(id), true
}
