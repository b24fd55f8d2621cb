package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"root/internal/githubclient"
	"root/internal/model"
	"root/internal/store"
)

type stubUsers struct{}

func (stubUsers) FetchUser(_ context.Context, token string) (githubclient.User, error) {
	return githubclient.User{ID: 1, Login: "octocat"}, nil
}

type stubMembers map[string]model.Member

func (s stubMembers) ByGitHubUser(_ context.Context, login string) (model.Member, error) {
	m, ok := s[login]
	if !ok {
		return model.Member{}, store.ErrNotFound
	}
	return m, nil
}

func newTestOAuth(t *testing.T, members stubMembers) (*OAuth, *gin.Engine) {
	t.Helper()
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "the-code", r.Form.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"gho_x","token_type":"bearer"}`))
	}))
	t.Cleanup(provider.Close)

	cfg := NewGitHubConfig("id", "secret", "http://localhost/auth/github/callback")
	cfg.Endpoint = oauth2.Endpoint{
		AuthURL:   provider.URL + "/login/oauth/authorize",
		TokenURL:  provider.URL + "/login/oauth/access_token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	o := NewOAuth(cfg, "state-key", "http://frontend.test/callback?x=1", stubUsers{}, members, nil)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/auth/github/login", o.Login)
	r.GET("/auth/github/callback", o.Callback)
	return o, r
}

func TestLoginRedirects(t *testing.T) {
	_, r := newTestOAuth(t, stubMembers{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/github/login", nil))

	require.Equal(t, http.StatusFound, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "read:user", loc.Query().Get("scope"))
	_, err = ParseState(loc.Query().Get("state"), "state-key")
	assert.NoError(t, err)
}

func decodeUserParam(t *testing.T, location string) loginPayload {
	t.Helper()
	u, err := url.Parse(location)
	require.NoError(t, err)
	assert.Equal(t, "1", u.Query().Get("x"))
	raw, err := base64.StdEncoding.DecodeString(u.Query().Get("user"))
	require.NoError(t, err)
	var p loginPayload
	require.NoError(t, json.Unmarshal(raw, &p))
	return p
}

func TestCallbackKnownMember(t *testing.T) {
	_, r := newTestOAuth(t, stubMembers{"octocat": {ID: 12}})
	state, err := IssueState("state-key", time.Minute, time.Now())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/github/callback?code=the-code&state="+state, nil))

	require.Equal(t, http.StatusFound, w.Code)
	p := decodeUserParam(t, w.Header().Get("Location"))
	assert.Equal(t, "gho_x", p.AccessToken)
	require.NotNil(t, p.MemberID)
	assert.Equal(t, int32(12), *p.MemberID)
	assert.Equal(t, "octocat", p.User.Login)
}

func TestCallbackUnknownMember(t *testing.T) {
	_, r := newTestOAuth(t, stubMembers{})
	state, err := IssueState("state-key", time.Minute, time.Now())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/github/callback?code=the-code&state="+state, nil))

	require.Equal(t, http.StatusFound, w.Code)
	assert.Nil(t, decodeUserParam(t, w.Header().Get("Location")).MemberID)
}

func TestCallbackRejectsBadState(t *testing.T) {
	_, r := newTestOAuth(t, stubMembers{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/github/callback?code=the-code&state=forged", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
