package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Claims is the identity carried by a session token.
type Claims struct {
	Sub string `json:"sub"`
	Exp int64  `json:"exp,omitempty"`
	Iat int64  `json:"iat,omitempty"`
}

// AccountID parses Sub as an account id.
func (c Claims) AccountID() (int64, bool) {
	id, err := strconv.ParseInt(c.Sub, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

var (
	ErrMissingSecret = errors.New("session secret not configured")
	ErrInvalidToken  = errors.New("invalid token")
)

// DefaultSessionTTL bounds tokens issued without "remember me".
const DefaultSessionTTL = 24 * time.Hour

// Signer issues and verifies HS256 session tokens.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner returns a Signer using secret.
func NewSigner(secret string) (*Signer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrMissingSecret
	}
	return &Signer{secret: []byte(secret), now: time.Now}, nil
}

// Issue signs a token for accountID that expires after ttl.
func (s *Signer) Issue(accountID int64, ttl time.Duration) (string, error) {
	if accountID <= 0 {
		return "", errors.New("account id is required")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	now := s.now().UTC()
	return s.Sign(Claims{
		Sub: strconv.FormatInt(accountID, 10),
		Iat: now.Unix(),
		Exp: now.Add(ttl).Unix(),
	})
}

// Sign signs the given claims.
func (s *Signer) Sign(claims Claims) (string, error) {
	if claims.Sub == "" {
		return "", errors.New("sub is required")
	}

	now := s.now().UTC().Unix()
	if claims.Iat == 0 {
		claims.Iat = now
	}
	if claims.Exp == 0 {
		claims.Exp = now + int64(DefaultSessionTTL/time.Second)
	}

	header := map[string]string{"alg": "HS256", "typ": "JWT"}
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return "", err
	}
	payloadJSON, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}

	signingInput := base64.RawURLEncoding.EncodeToString(headerJSON) + "." +
		base64.RawURLEncoding.EncodeToString(payloadJSON)
	return signingInput + "." + s.sign(signingInput), nil
}

// Verify checks the signature and expiry of token and returns its claims.
func (s *Signer) Verify(token string) (Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return Claims{}, ErrInvalidToken
	}

	signingInput := parts[0] + "." + parts[1]
	if !hmac.Equal([]byte(parts[2]), []byte(s.sign(signingInput))) {
		return Claims{}, ErrInvalidToken
	}

	payloadBytes, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	var claims Claims
	if err := json.Unmarshal(payloadBytes, &claims); err != nil {
		return Claims{}, ErrInvalidToken
	}
	if claims.Sub == "" {
		return Claims{}, ErrInvalidToken
	}
	if claims.Exp > 0 && s.now().UTC().Unix() > claims.Exp {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

func (s *Signer) sign(input string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(input))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
