package notify

import (
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// Auth entre agente y receiver: JWT HS256 de vida corta firmado con un
// secreto compartido, uno por request, enviado como Bearer.

const tokenTTL = 60 * time.Second

// MintToken firma un token de servicio para un request saliente.
func MintToken(secret, subject string) (string, error) {
	now := time.Now().UTC()
	claims := jwtv5.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(tokenTTL).Unix(),
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	return tk.SignedString([]byte(secret))
}

// VerifyToken valida firma y expiración de un token entrante.
// Devuelve el subject.
func VerifyToken(secret, raw string) (string, error) {
	tk, err := jwtv5.Parse(raw, func(t *jwtv5.Token) (any, error) {
		if _, ok := t.Method.(*jwtv5.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := tk.Claims.(jwtv5.MapClaims)
	if !ok || !tk.Valid {
		return "", errors.New("invalid token claims")
	}
	sub, _ := claims["sub"].(string)
	return sub, nil
}
