package services

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"referrals/internal/config"
	"referrals/internal/models"
	"referrals/pkg/utils"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// Claims carries the user's email in sub and the numeric id in uid.
type Claims struct {
	jwt.RegisteredClaims
	UserID uint `json:"uid"`
}

type TokenService struct {
	method     *jwt.SigningMethodRSA
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	ttl        time.Duration
	now        func() time.Time
}

func NewTokenService(method *jwt.SigningMethodRSA, privateKey *rsa.PrivateKey, publicKey *rsa.PublicKey, ttl time.Duration) *TokenService {
	return &TokenService{
		method:     method,
		privateKey: privateKey,
		publicKey:  publicKey,
		ttl:        ttl,
		now:        time.Now,
	}
}

// NewTokenServiceFromConfig loads the PEM key pair named in cfg. Outside
// production an ephemeral key is generated when no paths are set.
func NewTokenServiceFromConfig(cfg config.Config, logger *slog.Logger) (*TokenService, error) {
	method, ok := jwt.GetSigningMethod(cfg.Algorithm).(*jwt.SigningMethodRSA)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", cfg.Algorithm)
	}
	ttl := time.Duration(cfg.AccessTokenExpireMinutes) * time.Minute
	if ttl <= 0 {
		return nil, fmt.Errorf("access token expiry must be positive, got %d minutes", cfg.AccessTokenExpireMinutes)
	}

	if cfg.PrivateKeyPath == "" && cfg.PublicKeyPath == "" {
		if cfg.IsProduction() {
			return nil, errors.New("PRIVATE_KEY_PATH and PUBLIC_KEY_PATH are required in production")
		}
		logger.Warn("No JWT key pair configured, generating an ephemeral key; tokens will not survive a restart")
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			return nil, fmt.Errorf("failed to generate rsa key: %w", err)
		}
		return NewTokenService(method, key, &key.PublicKey, ttl), nil
	}

	privatePEM, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privatePEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	publicPEM, err := os.ReadFile(cfg.PublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key: %w", err)
	}
	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	return NewTokenService(method, privateKey, publicKey, ttl), nil
}

// Issue signs an access token for user and returns it with its expiry.
func (s *TokenService) Issue(user models.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)

	token := jwt.NewWithClaims(s.method, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        utils.NewTokenID(),
			Subject:   user.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: user.ID,
	})

	signed, err := token.SignedString(s.privateKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.publicKey, nil
	},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrTokenExpired
	}
	if err != nil || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// ExpiresIn is the token lifetime in seconds.
func (s *TokenService) ExpiresIn() int {
	return int(s.ttl.Seconds())
}
