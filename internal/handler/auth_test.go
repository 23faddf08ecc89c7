package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ync-lab/intranet/pkg/config"
	"github.com/ync-lab/intranet/pkg/naverworks"
)

const testAuthURL = "https://auth.example.com/authorize"

func newTestAuthMgr(redirectURI string) *AuthMgr {
	conf := &config.Config{}
	conf.NaverWorks.SuccessRedirect = "https://intranet.example.com/main.html"
	conf.NaverWorks.FailureRedirect = "https://intranet.example.com/login.html"
	return &AuthMgr{
		name: "auth",
		conf: conf,
		naverWorks: naverworks.NewClient(naverworks.Options{
			ClientID:    "client",
			RedirectURI: redirectURI,
			AuthURL:     testAuthURL,
		}),
	}
}

func authRouter(mgr *AuthMgr) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	mgr.RegisterPublic(r.Group("/auth"))
	return r
}

func TestNaverWorksLogin(t *testing.T) {
	t.Run("state cookie matches the redirect", func(t *testing.T) {
		r := authRouter(newTestAuthMgr("https://intranet.example.com/api/v1/auth/naver-works/callback"))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/naver-works/login", http.NoBody))

		require.Equal(t, http.StatusFound, w.Code)
		location, err := url.Parse(w.Header().Get("Location"))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(location.String(), testAuthURL))

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, oauthStateCookie, cookies[0].Name)
		assert.Equal(t, cookies[0].Value, location.Query().Get("state"))
		assert.True(t, cookies[0].HttpOnly)
	})

	t.Run("no cookie on localhost", func(t *testing.T) {
		r := authRouter(newTestAuthMgr("http://localhost:8088/api/v1/auth/naver-works/callback"))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/naver-works/login", http.NoBody))

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Empty(t, w.Result().Cookies())
	})
}

func TestNaverWorksCallbackFailures(t *testing.T) {
	mgr := newTestAuthMgr("https://intranet.example.com/api/v1/auth/naver-works/callback")
	r := authRouter(mgr)

	callback := func(query string, cookie *http.Cookie) string {
		req := httptest.NewRequest(http.MethodGet, "/auth/naver-works/callback?"+query, http.NoBody)
		if cookie != nil {
			req.AddCookie(cookie)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusFound, w.Code)
		return w.Header().Get("Location")
	}
	failure := func(code string) string {
		return fmt.Sprintf("%s?error=%s", mgr.conf.NaverWorks.FailureRedirect, code)
	}

	assert.Equal(t, failure("access_denied"), callback("error=access_denied", nil))
	assert.Equal(t, failure(oauthErrNoCode), callback("state=abc", nil))
	assert.Equal(t, failure(oauthErrInvalidState), callback("code=xyz&state=abc", nil))
	assert.Equal(t, failure(oauthErrInvalidState),
		callback("code=xyz&state=abc", &http.Cookie{Name: oauthStateCookie, Value: "other"}))
}

func TestOAuthErrorCode(t *testing.T) {
	assert.Equal(t, "unauthorized", oauthErrorCode(fmt.Errorf("token: %w", naverworks.ErrUnauthorized)))
	assert.Equal(t, "provider_unavailable", oauthErrorCode(fmt.Errorf("token: %w", naverworks.ErrUnavailable)))
	assert.Equal(t, oauthErrLoginFailed, oauthErrorCode(naverworks.ErrMalformedResponse))
}
