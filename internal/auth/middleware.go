package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// KeyVerifier checks a presented API key.
type KeyVerifier interface {
	Verify(ctx context.Context, credential string) (int32, bool)
}

type memberKey struct{}

// WithMember marks ctx as carrying a verified credential of memberID.
func WithMember(ctx context.Context, memberID int32) context.Context {
	return context.WithValue(ctx, memberKey{}, memberID)
}

// MemberFromContext returns the member whose credential was verified for this request.
func MemberFromContext(ctx context.Context) (int32, bool) {
	id, ok := ctx.Value(memberKey{}).(int32)
	return id, ok
}

// Credential extracts the API key from X-API-Key or an Authorization bearer header.
func Credential(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get("X-API-Key")); key != "" {
		return key
	}
	authz := r.Header.Get("Authorization")
	if len(authz) > len("bearer ") && strings.EqualFold(authz[:len("bearer ")], "bearer ") {
		return strings.TrimSpace(authz[len("bearer "):])
	}
	return ""
}

// APIKeyGate verifies any presented API key. Requests without one pass through
// anonymously; requests with an invalid one are rejected with 401. Verified requests
// carry the member id in their context.
func APIKeyGate(v KeyVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		cred := Credential(c.Request)
		if cred == "" {
			c.Next()
			return
		}
		memberID, ok := v.Verify(c.Request.Context(), cred)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
			return
		}
		c.Set("member_id", memberID)
		c.Request = c.Request.WithContext(WithMember(c.Request.Context(), memberID))
		c.Next()
	}
}
