// internal/auth/session.go
package auth

import (
	"crypto/rand"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const tokenCookie = "player_token"

// signingKey signs player tokens. Loaded from PLAYER_TOKEN_SECRET, or
// generated fresh at startup when unset (player identity then does not
// survive a restart).
var signingKey []byte

// TokenTTL bounds how long an issued player token stays valid.
var TokenTTL = 30 * 24 * time.Hour

// Init sets up the signing key.
func Init() {
	if secret := os.Getenv("PLAYER_TOKEN_SECRET"); secret != "" {
		signingKey = []byte(secret)
		return
	}
	signingKey = make([]byte, 32)
	if _, err := rand.Read(signingKey); err != nil {
		logrus.Fatalf("failed to generate player token key: %v", err)
	}
	logrus.Warn("PLAYER_TOKEN_SECRET not set, player identities will not survive a restart")
}

// CreatePlayerToken signs a token with "sub" = playerID.
func CreatePlayerToken(playerID string) (string, error) {
	claims := jwt.MapClaims{
		"sub": playerID,
		"exp": time.Now().Add(TokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(signingKey)
}

// ParsePlayerToken verifies a token string and returns the "sub" claim.
func ParsePlayerToken(tokenString string) (string, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return signingKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid player token: %w", err)
	}
	sub, err := t.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("player token missing subject")
	}
	return sub, nil
}

// EnsurePlayer resolves the caller's player id from the session cookie,
// minting a fresh anonymous identity (and setting the cookie) when the
// cookie is absent or invalid.
func EnsurePlayer(w http.ResponseWriter, r *http.Request) (string, error) {
	if c, err := r.Cookie(tokenCookie); err == nil {
		if playerID, err := ParsePlayerToken(c.Value); err == nil {
			return playerID, nil
		}
	}

	playerID := uuid.NewString()
	token, err := CreatePlayerToken(playerID)
	if err != nil {
		return "", fmt.Errorf("failed to create player token: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    token,
		HttpOnly: true,
		Path:     "/",
		MaxAge:   int(TokenTTL.Seconds()),
		SameSite: http.SameSiteLaxMode,
	})
	return playerID, nil
}

// PlayerFromRequest resolves the caller's player id without minting a
// new one. Used where a missing identity is an error (the event stream).
func PlayerFromRequest(r *http.Request) (string, error) {
	c, err := r.Cookie(tokenCookie)
	if err != nil {
		return "", fmt.Errorf("no player session")
	}
	return ParsePlayerToken(c.Value)
}
