package service

import (
	"fmt"
	"time"

	"github.com/dulgistudio/dulgi/internal/middleware"
	"github.com/dulgistudio/dulgi/internal/modules/auth/dto"
	"github.com/dulgistudio/dulgi/pkg/apperror"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

type AuthService interface {
	// IssueToken mints a signed token for the given user. Presenting the
	// admin secret upgrades the role; a wrong secret is rejected outright.
	IssueToken(req dto.TokenRequest) (dto.TokenResponse, error)
}

type authService struct {
	secret    string
	adminHash string
	ttl       time.Duration
}

func NewAuthService(secret, adminHash string, ttl time.Duration) AuthService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &authService{secret: secret, adminHash: adminHash, ttl: ttl}
}

func (s *authService) IssueToken(req dto.TokenRequest) (dto.TokenResponse, error) {
	role := RoleMember
	if req.AdminSecret != "" {
		if s.adminHash == "" {
			return dto.TokenResponse{}, fmt.Errorf("%w: admin access is not configured", apperror.ErrForbidden)
		}
		if err := bcrypt.CompareHashAndPassword([]byte(s.adminHash), []byte(req.AdminSecret)); err != nil {
			return dto.TokenResponse{}, fmt.Errorf("%w: invalid admin secret", apperror.ErrUnauthorized)
		}
		role = RoleAdmin
	}

	now := time.Now()
	claims := middleware.Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   req.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return dto.TokenResponse{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return dto.TokenResponse{
		Token:     signed,
		Role:      role,
		ExpiresIn: int64(s.ttl.Seconds()),
	}, nil
}
