package login

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"caringai-backend/migrations"
)

// Admin session tokens: HMAC-signed JWT-shaped tokens, no external
// dependency. A logout blacklist lives in memory; acceptable for a
// single-instance dashboard.

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

var (
	blacklistMu sync.Mutex
	blacklist   = map[string]int64{} // token -> expiry unix
)

type tokenPayload struct {
	Email string `json:"email"`
	Exp   int64  `json:"exp"`
	Jti   string `json:"jti"`
}

func sessionDuration(remember bool) time.Duration {
	defHours := 12
	if v := os.Getenv("SESSION_DEFAULT_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			defHours = n
		}
	}
	remDays := 30
	if v := os.Getenv("SESSION_REMEMBER_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			remDays = n
		}
	}
	if remember {
		return time.Hour * 24 * time.Duration(remDays)
	}
	return time.Hour * time.Duration(defHours)
}

func sessionSecret() []byte {
	s := os.Getenv("SESSION_SECRET")
	if s == "" {
		s = "dev-insecure-secret"
	}
	return []byte(s)
}

func signToken(email string, dur time.Duration) (string, int64) {
	exp := time.Now().Add(dur).Unix()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	payloadBytes, _ := json.Marshal(tokenPayload{Email: email, Exp: exp, Jti: generateJTI()})
	payload := base64.RawURLEncoding.EncodeToString(payloadBytes)
	mac := hmac.New(sha256.New, sessionSecret())
	mac.Write([]byte(header + "." + payload))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return header + "." + payload + "." + sig, exp
}

func parseToken(token string) (tokenPayload, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return tokenPayload{}, false
	}
	unsigned := parts[0] + "." + parts[1]
	mac := hmac.New(sha256.New, sessionSecret())
	mac.Write([]byte(unsigned))
	expected := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(parts[2])) {
		return tokenPayload{}, false
	}
	pb, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return tokenPayload{}, false
	}
	var tp tokenPayload
	if err := json.Unmarshal(pb, &tp); err != nil {
		return tokenPayload{}, false
	}
	if tp.Exp < time.Now().Unix() {
		return tokenPayload{}, false
	}
	blacklistMu.Lock()
	exp, blocked := blacklist[token]
	blacklistMu.Unlock()
	if blocked && exp >= time.Now().Unix() {
		return tokenPayload{}, false
	}
	return tp, true
}

func generateJTI() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return time.Now().Format("20060102150405")
	}
	return hex.EncodeToString(b)
}

// GetEmailFromToken validates signature + expiry and returns the email.
func GetEmailFromToken(token string) (string, bool) {
	tp, ok := parseToken(token)
	if !ok {
		return "", false
	}
	return tp.Email, true
}

// Handler authenticates a dashboard account and issues a token.
func Handler(c *gin.Context) {
	var creds Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid credentials payload"})
		return
	}
	u := migrations.GetAdminByEmail(strings.ToLower(strings.TrimSpace(creds.Email)))
	if u == nil || u.Password != migrations.HashPassword(creds.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}
	token, exp := signToken(u.Email, sessionDuration(creds.Remember))
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": exp,
		"user":       gin.H{"name": u.Name, "email": u.Email, "role": u.Role},
	})
}

// Logout blacklists the presented token until it would have expired.
func Logout(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing token"})
		return
	}
	if tp, ok := parseToken(token); ok {
		blacklistMu.Lock()
		blacklist[token] = tp.Exp
		blacklistMu.Unlock()
	}
	c.Status(http.StatusNoContent)
}

// RequireAuth guards the admin routes.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		email, ok := GetEmailFromToken(bearerToken(c))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set("admin_email", email)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	return strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
}
