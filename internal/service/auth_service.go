package service

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"stockroom/internal/config"
	"stockroom/internal/dto"
)

// AuthService verifies the single administrative credential pair and issues
// time-bounded HS256 tokens. There is no user table: the username and the
// bcrypt hash of the password come from configuration.
type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
}

type authService struct {
	cfg *config.Config
}

func NewAuthService(cfg *config.Config) AuthService {
	return &authService{cfg: cfg}
}

func (s *authService) Login(_ context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	// Same failure answer for both username and password mismatches.
	usernameOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.cfg.AdminUsername)) == 1
	passwordOK := bcrypt.CompareHashAndPassword([]byte(s.cfg.AdminPasswordHash), []byte(req.Password)) == nil
	if !usernameOK || !passwordOK {
		return nil, ErrInvalidCredentials
	}

	expiry := time.Duration(s.cfg.JWTExpirationHours) * time.Hour
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": req.Username,
		"iat":      now.Unix(),
		"exp":      now.Add(expiry).Unix(),
	})
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{
		Token:     signed,
		TokenType: "bearer",
		ExpiresIn: s.cfg.JWTExpirationHours * 3600,
		Username:  req.Username,
	}, nil
}
