package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims binds a browser session to one stored upload.
type Claims struct {
	UploadID string `json:"upload_id"`
	jwt.RegisteredClaims
}

// IssueSessionToken signs a session token carrying uploadID, valid for ttl.
func IssueSessionToken(secret []byte, uploadID string, ttl time.Duration, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("auth: empty secret")
	}
	if uploadID == "" {
		return "", errors.New("auth: empty upload id")
	}
	claims := &Claims{
		UploadID: uploadID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "bee-console",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseSessionToken validates a session token and returns its claims.
func ParseSessionToken(tokenString string, secret []byte) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("auth: empty token")
	}
	if len(secret) == 0 {
		return nil, errors.New("auth: empty secret")
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("auth: invalid signing method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("auth: invalid token")
	}
	if claims.UploadID == "" {
		return nil, errors.New("auth: missing upload_id")
	}
	return claims, nil
}
