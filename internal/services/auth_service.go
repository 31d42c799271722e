package services

import (
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	// DefaultTokenTTL is how long the admin bearer token stays valid
	DefaultTokenTTL = 30 * 24 * time.Hour
	// AdminSessionFlag marks a session as authenticated admin
	AdminSessionFlag = "admin"

	adminRole = "admin"
)

// AdminCredentials are the two independent proofs a request can carry
type AdminCredentials struct {
	SessionFlag bool
	Token       string
}

// AdminDecision is the outcome of the admin gate
type AdminDecision int

const (
	AdminDenied AdminDecision = iota
	// AdminViaSession means the in-process session flag was set
	AdminViaSession
	// AdminViaToken means the session flag was missing but the bearer token
	// verified; the caller restores the session flag
	AdminViaToken
)

func (d AdminDecision) Allowed() bool {
	return d == AdminViaSession || d == AdminViaToken
}

type adminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AdminGate guards the admin area with a single shared password. A login
// sets a session flag and issues a signed bearer token; the token survives
// restarts and re-establishes the flag when the session is gone.
type AdminGate struct {
	password string
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

func NewAdminGate(password, secret string, ttl time.Duration) *AdminGate {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &AdminGate{
		password: password,
		secret:   []byte(secret),
		ttl:      ttl,
		now:      time.Now,
	}
}

// CheckPassword compares against the configured admin password. An empty
// configured password disables admin login.
func (g *AdminGate) CheckPassword(password string) bool {
	if g.password == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(g.password)) == 1
}

// IssueToken signs a new admin token and returns it with its expiry
func (g *AdminGate) IssueToken() (string, time.Time, error) {
	issued := g.now()
	expires := issued.Add(g.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, adminClaims{
		Role: adminRole,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := token.SignedString(g.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign admin token: %w", err)
	}
	return signed, expires, nil
}

// VerifyToken checks signature, expiry and role. Every failure is reported
// as ErrUnauthorized without saying which check failed.
func (g *AdminGate) VerifyToken(token string) error {
	if token == "" {
		return ErrUnauthorized
	}
	var claims adminClaims
	// expiry is checked below against the gate's clock
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	_, err := parser.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return g.secret, nil
	})
	if err != nil {
		return ErrUnauthorized
	}
	if claims.Role != adminRole || !claims.VerifyExpiresAt(g.now(), true) {
		return ErrUnauthorized
	}
	return nil
}

// Authorize applies the fallback policy: the session flag is checked first
// and the token is only consulted when the flag is absent.
func (g *AdminGate) Authorize(creds AdminCredentials) AdminDecision {
	if creds.SessionFlag {
		return AdminViaSession
	}
	if g.VerifyToken(creds.Token) == nil {
		return AdminViaToken
	}
	return AdminDenied
}
