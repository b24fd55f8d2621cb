package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"root/internal/apperr"
)

// KeyIssuer creates API keys for verified identities.
type KeyIssuer interface {
	Issue(ctx context.Context, identityToken string, memberID int32) (string, error)
}

// IssueHandler serves POST /api-key. The GitHub token arrives as a bearer token and
// the target member in the JSON body.
func IssueHandler(issuer KeyIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			MemberID int32 `json:"member_id" binding:"required,gt=0"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		authz := c.GetHeader("Authorization")
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		token := strings.TrimSpace(authz[len("bearer "):])

		key, err := issuer.Issue(c.Request.Context(), token, req.MemberID)
		if err != nil {
			c.JSON(apperr.HTTPStatus(err), gin.H{"error": err.Error(), "code": apperr.KindOf(err).String()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"api_key": key, "member_id": req.MemberID})
	}
}
