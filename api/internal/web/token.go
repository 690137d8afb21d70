package web

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const cookieName = "tribunal_session"

var errBadToken = errors.New("web: invalid session token")

// makeToken подписывает идентификатор сессии в куку. Сервер всё равно
// держит состояние у себя — токен только связывает браузер с контейнером.
func makeToken(secret []byte, sid, email string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sid":   sid,
		"email": email,
		"exp":   time.Now().Add(8 * time.Hour).Unix(),
	})
	return token.SignedString(secret)
}

func parseToken(secret []byte, tokenStr string) (sid string, err error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errBadToken
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return "", errBadToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errBadToken
	}
	sid, ok = claims["sid"].(string)
	if !ok || sid == "" {
		return "", errBadToken
	}
	return sid, nil
}
