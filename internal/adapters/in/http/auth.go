package http

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/suchimauz/docplanner-slots-gateway/internal/config"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Authenticator проверяет логин/пароль клиентов из AUTH_BASIC_CLIENTS и выпускает JWT
type Authenticator struct {
	hashes    map[string][]byte
	dummyHash []byte
	secret    []byte
	ttl       time.Duration
	now       func() time.Time
}

func NewAuthenticator(cfg *config.Config) (*Authenticator, error) {
	hashes := make(map[string][]byte, len(cfg.Auth.BasicClients))
	for _, client := range cfg.Auth.BasicClients {
		hash, err := bcrypt.GenerateFromPassword([]byte(client.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password for client %s: %w", client.Username, err)
		}
		hashes[client.Username] = hash
	}

	// Сравнение с фиктивным хэшем для неизвестных пользователей выравнивает время ответа
	dummyHash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash dummy password: %w", err)
	}

	return &Authenticator{
		hashes:    hashes,
		dummyHash: dummyHash,
		secret:    []byte(cfg.Auth.JWTSecret),
		ttl:       cfg.Auth.JWTTTL,
		now:       time.Now,
	}, nil
}

func (a *Authenticator) CheckCredentials(username, password string) bool {
	hash, ok := a.hashes[username]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(a.dummyHash, []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}

func (a *Authenticator) IssueToken(username string) (string, time.Time, error) {
	now := a.now()
	expiresAt := now.Add(a.ttl)

	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// ParseToken возвращает имя клиента из валидного токена
func (a *Authenticator) ParseToken(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return "", err
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", jwt.ErrTokenInvalidClaims
	}

	// Токен клиента, которого убрали из конфигурации, больше не принимаем
	if _, ok := a.hashes[claims.Subject]; !ok {
		return "", ErrInvalidCredentials
	}

	return claims.Subject, nil
}
