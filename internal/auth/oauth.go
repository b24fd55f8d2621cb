package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"root/internal/githubclient"
	"root/internal/model"
	"root/internal/store"
)

const stateTTL = 10 * time.Minute

// UserFetcher resolves the GitHub account behind an access token.
type UserFetcher interface {
	FetchUser(ctx context.Context, token string) (githubclient.User, error)
}

// MemberFinder looks members up by GitHub login.
type MemberFinder interface {
	ByGitHubUser(ctx context.Context, login string) (model.Member, error)
}

// OAuth serves the GitHub login round trip.
type OAuth struct {
	Config   *oauth2.Config
	StateKey string
	Frontend string
	Users    UserFetcher
	Members  MemberFinder
	Logger   *zap.Logger
	now      func() time.Time
}

// NewGitHubConfig returns the oauth2 config for the GitHub app.
func NewGitHubConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{"read:user"},
		Endpoint:     github.Endpoint,
	}
}

// NewOAuth wires the login handlers.
func NewOAuth(cfg *oauth2.Config, stateKey, frontend string, users UserFetcher, members MemberFinder, logger *zap.Logger) *OAuth {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OAuth{Config: cfg, StateKey: stateKey, Frontend: frontend, Users: users, Members: members, Logger: logger, now: time.Now}
}

// Login redirects the browser to GitHub's consent page.
func (o *OAuth) Login(c *gin.Context) {
	state, err := IssueState(o.StateKey, stateTTL, o.now())
	if err != nil {
		o.Logger.Error("sign oauth state", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login unavailable"})
		return
	}
	c.Redirect(http.StatusFound, o.Config.AuthCodeURL(state))
}

type loginPayload struct {
	AccessToken string            `json:"access_token"`
	MemberID    *int32            `json:"member_id"`
	User        githubclient.User `json:"user"`
}

// Callback exchanges the code, identifies the member and hands the result to the
// frontend as a base64 JSON query parameter.
func (o *OAuth) Callback(c *gin.Context) {
	if _, err := ParseState(c.Query("state"), o.StateKey); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid state"})
		return
	}
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}

	ctx := c.Request.Context()
	tok, err := o.Config.Exchange(ctx, code)
	if err != nil {
		o.Logger.Warn("oauth code exchange failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "code exchange failed"})
		return
	}
	user, err := o.Users.FetchUser(ctx, tok.AccessToken)
	if err != nil {
		o.Logger.Warn("fetch github user failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "github user lookup failed"})
		return
	}

	payload := loginPayload{AccessToken: tok.AccessToken, User: user}
	m, err := o.Members.ByGitHubUser(ctx, user.Login)
	switch {
	case err == nil:
		payload.MemberID = &m.ID
	case errors.Is(err, store.ErrNotFound):
		o.Logger.Info("github login without member", zap.String("github_user", user.Login))
	default:
		o.Logger.Error("member lookup failed", zap.String("github_user", user.Login), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "member lookup failed"})
		return
	}

	target, err := redirectWith(o.Frontend, payload)
	if err != nil {
		o.Logger.Error("build frontend redirect", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "bad frontend redirect"})
		return
	}
	c.Redirect(http.StatusFound, target)
}

func redirectWith(frontend string, p loginPayload) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(frontend)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("user", base64.StdEncoding.EncodeToString(raw))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
