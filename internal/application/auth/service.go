package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

const issuer = "audioforge-auth"

var (
	ErrMissingCredentials = errors.New("missing credentials")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token has expired")
)

// Credential is a stored user credential row.
type Credential struct {
	Email    string
	Password string
}

// UserSource resolves an email address to its stored credential.
type UserSource interface {
	Lookup(ctx context.Context, email string) (Credential, error)
}

// Claims are the JWT claims issued on login.
type Claims struct {
	Subject   string `json:"sub"`
	Issuer    string `json:"iss"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// Service authenticates users and issues signed tokens.
type Service struct {
	users    UserSource
	secret   []byte
	tokenTTL time.Duration
}

// NewService creates an auth service signing with an HS256 secret.
func NewService(users UserSource, secret []byte, tokenTTL time.Duration) (*Service, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret is required")
	}
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Service{users: users, secret: secret, tokenTTL: tokenTTL}, nil
}

// Login verifies a credential pair and returns a fresh signed token.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", ErrMissingCredentials
	}

	stored, err := s.users.Lookup(ctx, email)
	if err != nil {
		return "", err
	}

	emailOK := subtle.ConstantTimeCompare([]byte(stored.Email), []byte(email)) == 1
	passwordOK := subtle.ConstantTimeCompare([]byte(stored.Password), []byte(password)) == 1
	if !emailOK || !passwordOK {
		return "", ErrInvalidCredentials
	}

	return s.issue(email)
}

// Validate verifies a token's signature and expiry and returns its claims.
func (s *Service) Validate(token string) (Claims, error) {
	if token == "" {
		return Claims{}, ErrInvalidToken
	}

	parsed, err := jwt.ParseSigned(token, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var claims Claims
	if err := parsed.Claims(s.secret, &claims); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	now := time.Now().Unix()
	if claims.ExpiresAt > 0 && claims.ExpiresAt < now {
		return Claims{}, ErrTokenExpired
	}
	if claims.Issuer != issuer {
		return Claims{}, ErrInvalidToken
	}

	return claims, nil
}

func (s *Service) issue(email string) (string, error) {
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.HS256, Key: s.secret}, nil)
	if err != nil {
		return "", fmt.Errorf("create signer: %w", err)
	}

	now := time.Now()
	claims := Claims{
		Subject:   email,
		Issuer:    issuer,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.tokenTTL).Unix(),
	}

	token, err := jwt.Signed(signer).Claims(claims).Serialize()
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}
