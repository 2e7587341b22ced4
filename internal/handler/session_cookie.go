package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const sessionCookieName = "story_session"

var errNoSessionCookie = errors.New("no story session cookie")

// sessionClaims - содержимое cookie: id текущей сессии истории.
type sessionClaims struct {
	SessionID int64 `json:"sid"`
	jwt.RegisteredClaims
}

// SessionCookie подписывает и проверяет cookie story_session (HS256).
type SessionCookie struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewSessionCookie(secret string, ttl time.Duration, secure bool) *SessionCookie {
	return &SessionCookie{
		secret: []byte(secret),
		ttl:    ttl,
		secure: secure,
		now:    time.Now,
	}
}

// Sign выпускает токен для сессии.
func (s *SessionCookie) Sign(sessionID int64) (string, error) {
	now := s.now()
	claims := sessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(sessionID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session cookie: %w", err)
	}
	return token, nil
}

// Parse проверяет подпись и срок действия, возвращает id сессии.
func (s *SessionCookie) Parse(raw string) (int64, error) {
	token, err := jwt.ParseWithClaims(raw, &sessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return 0, fmt.Errorf("invalid session cookie: %w", err)
	}
	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid || claims.SessionID <= 0 {
		return 0, errors.New("invalid session cookie claims")
	}
	return claims.SessionID, nil
}

// Set записывает cookie в ответ.
func (s *SessionCookie) Set(c *gin.Context, sessionID int64) error {
	token, err := s.Sign(sessionID)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookieName, token, int(s.ttl.Seconds()), "/", "", s.secure, true)
	return nil
}

// Current читает id сессии из cookie запроса.
func (s *SessionCookie) Current(c *gin.Context) (int64, error) {
	raw, err := c.Cookie(sessionCookieName)
	if err != nil || raw == "" {
		return 0, errNoSessionCookie
	}
	return s.Parse(raw)
}
