// Package token выпускает и проверяет подписанные bearer токены (JWT, HS512).
//
// Токены не хранятся на сервере: валидность определяется только байтами токена,
// ключом подписи и текущим временем.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultIssuer значение iss по умолчанию
const DefaultIssuer = "grade-submission"

var (
	// ErrTokenInvalid token signature, format or claims do not verify
	ErrTokenInvalid = errors.New("token is invalid")
	// ErrTokenExpired token signature is valid but now >= exp
	ErrTokenExpired = errors.New("token is expired")

	// ErrEmptySecret returned by NewCodec when no signing key is configured
	ErrEmptySecret = errors.New("token signing secret is empty")
	// ErrInvalidTTL returned by NewCodec when TTL is not positive
	ErrInvalidTTL = errors.New("token ttl must be positive")
	// ErrEmptySubject returned by Issue for an empty subject
	ErrEmptySubject = errors.New("token subject is empty")
)

// Claims представляет claims токена: sub, iat, nbf, exp, iss, jti
type Claims struct {
	jwt.RegisteredClaims
}

// Config содержит параметры кодека
type Config struct {
	// Now источник времени, по умолчанию time.Now
	Now    func() time.Time
	Issuer string
	Secret []byte
	TTL    time.Duration
}

// Codec выпускает и разбирает токены. После создания не изменяется
// и безопасен для использования из нескольких горутин.
type Codec struct {
	now    func() time.Time
	parser *jwt.Parser
	issuer string
	secret []byte
	ttl    time.Duration
}

// NewCodec создает кодек из конфигурации
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.Secret) == 0 {
		return nil, ErrEmptySecret
	}
	if cfg.TTL <= 0 {
		return nil, ErrInvalidTTL
	}

	issuer := cfg.Issuer
	if issuer == "" {
		issuer = DefaultIssuer
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	// Копируем ключ, чтобы внешние изменения слайса не влияли на кодек
	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)

	c := &Codec{
		now:    now,
		issuer: issuer,
		secret: secret,
		ttl:    cfg.TTL,
	}
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(c.now),
	)

	return c, nil
}

// TTL возвращает время жизни токена по умолчанию
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Issue создает токен для subject со сроком жизни ttl.
// Если ttl не положителен, используется TTL из конфигурации.
func (c *Codec) Issue(subject string, ttl time.Duration) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, ErrEmptySubject
	}
	if ttl <= 0 {
		ttl = c.ttl
	}

	// NumericDate хранит секунды, поэтому обрезаем заранее,
	// чтобы возвращаемое время совпадало с exp внутри токена
	now := c.now().Truncate(jwt.TimePrecision)
	expiresAt := now.Add(ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, expiresAt, nil
}

// Parse проверяет подпись и claims токена.
// Подпись проверяется до claims, поэтому ErrTokenExpired возвращается
// только для токенов с корректной подписью.
func (c *Codec) Parse(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("%w: empty token", ErrTokenInvalid)
	}

	claims := &Claims{}
	tok, err := c.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if !tok.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	return claims, nil
}
