package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"copper-backend/internal/shared/auth"
	"copper-backend/internal/shared/server/flash"
	"copper-backend/internal/shared/server/respond"
	"copper-backend/internal/shared/telemetry"
)

const (
	// SessionCookie carries the signed session token.
	SessionCookie = "session"
	// RememberTTL is the lifetime of a "remember me" session.
	RememberTTL = 30 * 24 * time.Hour

	userIDKey = "userId"

	// LoginRequiredMessage is flashed when an anonymous visitor hits a protected page.
	LoginRequiredMessage = "Please log in to access this page."
)

// AccountChecker reports whether an account still exists.
type AccountChecker interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// Sessions manages the session cookie.
type Sessions struct {
	signer   *auth.Signer
	accounts AccountChecker
	secure   bool
}

// NewSessions builds a session manager. accounts may be nil, in which case
// any validly signed token is trusted.
func NewSessions(signer *auth.Signer, accounts AccountChecker, secure bool) *Sessions {
	return &Sessions{signer: signer, accounts: accounts, secure: secure}
}

// Load resolves the session cookie into an account id on the context.
// A bad or stale cookie is cleared and the request continues anonymously.
func (s *Sessions) Load() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(SessionCookie)
		if err != nil || token == "" {
			c.Next()
			return
		}
		claims, err := s.signer.Verify(token)
		if err != nil {
			s.clear(c)
			c.Next()
			return
		}
		id, ok := claims.AccountID()
		if !ok {
			s.clear(c)
			c.Next()
			return
		}
		if s.accounts != nil {
			exists, err := s.accounts.Exists(c.Request.Context(), id)
			if err != nil {
				telemetry.Warn("session.lookup_failed", map[string]any{
					"user_id": id,
					"error":   err.Error(),
				})
				c.Next()
				return
			}
			if !exists {
				s.clear(c)
				c.Next()
				return
			}
		}
		c.Set(userIDKey, id)
		c.Next()
	}
}

// Start logs accountID in. With remember set the cookie persists for
// RememberTTL, otherwise it lasts for the browser session.
func (s *Sessions) Start(c *gin.Context, accountID int64, remember bool) error {
	ttl := auth.DefaultSessionTTL
	maxAge := 0
	if remember {
		ttl = RememberTTL
		maxAge = int(RememberTTL / time.Second)
	}
	token, err := s.signer.Issue(accountID, ttl)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, token, maxAge, "/", "", s.secure, true)
	c.Set(userIDKey, accountID)
	return nil
}

// End logs the current visitor out.
func (s *Sessions) End(c *gin.Context) {
	s.clear(c)
	delete(c.Keys, userIDKey)
}

func (s *Sessions) clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", s.secure, true)
}

// AccountIDFromContext returns the logged-in account id, if any.
func AccountIDFromContext(c *gin.Context) (int64, bool) {
	if c == nil {
		return 0, false
	}
	val, ok := c.Get(userIDKey)
	if !ok {
		return 0, false
	}
	id, ok := val.(int64)
	return id, ok && id > 0
}

// RequireLogin redirects anonymous visitors to the login page, remembering
// where they were headed.
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := AccountIDFromContext(c); ok {
			c.Next()
			return
		}
		location := "/login"
		if next := SafeNext(c.Request.URL.RequestURI()); next != "" {
			location += "?next=" + url.QueryEscape(next)
		}
		respond.Redirect(c, location, flash.Info, LoginRequiredMessage)
	}
}

// SafeNext returns next when it is a local path and "" otherwise.
func SafeNext(next string) string {
	next = strings.TrimSpace(next)
	if next == "" || !strings.HasPrefix(next, "/") {
		return ""
	}
	if strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	if u, err := url.Parse(next); err != nil || u.Host != "" || u.Scheme != "" {
		return ""
	}
	return next
}
