// Package auth issues and verifies the bearer tokens that guard the admin
// endpoints.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"manutencao-predial/portal-backend/internal/apperr"
)

const issuer = "manutencao-predial"

// Claims carried by an access token
type Claims struct {
	jwt.RegisteredClaims
}

// Token is the login response
type Token struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Credentials is the login request
type Credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Options configures the single admin account
type Options struct {
	Secret       []byte
	TTL          time.Duration
	Username     string
	PasswordHash []byte
}

type Service struct {
	options Options
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(options Options, logger *zap.Logger) *Service {
	return &Service{options: options, logger: logger, now: time.Now}
}

// HashPassword returns the bcrypt hash stored in configuration
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Login checks the credentials and issues an HS256 token
func (s *Service) Login(creds Credentials) (*Token, error) {
	userOK := subtle.ConstantTimeCompare([]byte(creds.Username), []byte(s.options.Username)) == 1
	passErr := bcrypt.CompareHashAndPassword(s.options.PasswordHash, []byte(creds.Password))
	if !userOK || passErr != nil {
		s.logger.Warn("Login rejected", zap.String("username", creds.Username))
		return nil, apperr.Unauthorized("usuário ou senha inválidos")
	}

	now := s.now()
	expires := now.Add(s.options.TTL)
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   creds.Username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.options.Secret)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("failed to sign token: %w", err))
	}

	s.logger.Info("Login succeeded", zap.String("username", creds.Username))
	return &Token{Token: signed, ExpiresAt: expires.UTC()}, nil
}

// Verify parses a token and checks signature, algorithm, issuer and expiry
func (s *Service) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return s.options.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.Unauthorized("sessão expirada, faça login novamente")
		}
		return nil, apperr.Unauthorized("token inválido")
	}
	return claims, nil
}
