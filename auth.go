package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	bcryptCost       = 12
	loginRateWindow  = 60 * time.Second
	maxLoginAttempts = 10
	adminSubject     = "admin"
)

var (
	ErrAdminDisabled = errors.New("admin login disabled")
	ErrBadPassword   = errors.New("invalid password")
	ErrLoginRate     = errors.New("too many login attempts, try again later")
)

// Auth guards the admin API with a bcrypt password and HS256 tokens
type Auth struct {
	passHash  []byte
	jwtSecret []byte
	ttl       time.Duration

	// login attempts per IP, same rolling window as websocket messages
	attemptsMu sync.Mutex
	attempts   map[string]*RateLimiter
	lastSweep  time.Time
}

// NewAuth creates the admin authenticator. An empty password hash disables
// login.
func NewAuth(db *DB, cfg AdminConfig) *Auth {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Auth{
		passHash:  []byte(cfg.PasswordHash),
		jwtSecret: loadOrCreateSecret(db),
		ttl:       ttl,
		attempts:  make(map[string]*RateLimiter),
	}
}

// loadOrCreateSecret loads the JWT secret from the database, or generates
// and persists a new one if none exists.
func loadOrCreateSecret(db *DB) []byte {
	if db != nil {
		if h := db.GetSetting("jwt_secret"); h != "" {
			if b, err := hex.DecodeString(h); err == nil && len(b) == 32 {
				return b
			}
		}
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic("failed to generate JWT secret: " + err.Error())
	}
	if db != nil {
		if err := db.SetSetting("jwt_secret", hex.EncodeToString(secret)); err != nil {
			Log.Warnw("could not persist JWT secret", "err", err)
		}
	}
	return secret
}

// HashPassword returns a bcrypt hash suitable for admin.password_hash
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Login checks the admin password and returns a signed token
func (a *Auth) Login(password, ip string) (string, error) {
	if len(a.passHash) == 0 {
		return "", ErrAdminDisabled
	}
	if !a.allowAttempt(ip, time.Now()) {
		return "", ErrLoginRate
	}
	if err := bcrypt.CompareHashAndPassword(a.passHash, []byte(password)); err != nil {
		return "", ErrBadPassword
	}
	return a.generateToken()
}

// ValidateToken verifies signature, expiry and subject
func (a *Auth) ValidateToken(tokenStr string) error {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(*jwt.Token) (interface{}, error) {
		return a.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return err
	}
	if claims.Subject != adminSubject {
		return fmt.Errorf("token subject %q is not %q", claims.Subject, adminSubject)
	}
	return nil
}

func (a *Auth) generateToken() (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   adminSubject,
		ID:        GenerateUUID(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.jwtSecret)
}

func (a *Auth) allowAttempt(ip string, now time.Time) bool {
	a.attemptsMu.Lock()
	defer a.attemptsMu.Unlock()
	if now.Sub(a.lastSweep) >= loginRateWindow {
		a.lastSweep = now
		for k, rl := range a.attempts {
			if rl.Idle(now) {
				delete(a.attempts, k)
			}
		}
	}
	rl, ok := a.attempts[ip]
	if !ok {
		rl = NewRateLimiter(maxLoginAttempts, loginRateWindow)
		a.attempts[ip] = rl
	}
	return rl.Allow(now)
}

// Middleware rejects requests without a valid bearer token
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		tok, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || a.ValidateToken(tok) != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
