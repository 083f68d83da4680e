// Package auth signs the device token carried in the device cookie. The token only names the
// browsing context; it grants nothing by itself.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const audience = "studio16-device"

type Claims struct {
	Device string `json:"device"`
	jwt.RegisteredClaims
}

var ErrInvalidToken = errors.New("invalid device token")

func NewDeviceToken(device, secret string, now time.Time, ttl time.Duration) (string, error) {
	claims := Claims{
		Device: device,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   device,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Audience:  []string{audience},
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Parse validates tokenString as of now.
func Parse(tokenString, secret string, now time.Time) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return nil, err
	}
	if claims, ok := tok.Claims.(*Claims); ok && tok.Valid && claims.Device != "" {
		return claims, nil
	}
	return nil, ErrInvalidToken
}
