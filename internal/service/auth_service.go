package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"in8/internal/model"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrMissingUserID      = errors.New("userId is required")
)

const (
	audienceAdmin = "in8-admin"
	audienceUser  = "in8-user"
)

// AuthService issues and validates admin and survey-taker tokens
type AuthService struct {
	adminUsername string
	adminPassword string
	jwtSecret     []byte
	userTokenTTL  time.Duration
	now           func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(adminUsername, adminPassword, secret string, userTokenTTL time.Duration) *AuthService {
	return &AuthService{
		adminUsername: adminUsername,
		adminPassword: adminPassword,
		jwtSecret:     []byte(secret),
		userTokenTTL:  userTokenTTL,
		now:           time.Now,
	}
}

// Login validates admin credentials and returns a token
func (s *AuthService) Login(username, password string) (*model.LoginResponse, error) {
	if username != s.adminUsername || password != s.adminPassword {
		return nil, ErrInvalidCredentials
	}

	adminID := "admin_" + uuid.New().String()[:8]
	claims := &model.AdminClaims{
		AdminID: adminID,
		RegisteredClaims: jwt.RegisteredClaims{
			Audience: jwt.ClaimStrings{audienceAdmin},
			IssuedAt: jwt.NewNumericDate(s.now()),
			// Admin tokens do not expire
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, err
	}
	return &model.LoginResponse{Token: token, AdminID: adminID}, nil
}

// ValidateAdminToken validates an admin JWT and returns claims
func (s *AuthService) ValidateAdminToken(tokenString string) (*model.AdminClaims, error) {
	claims := &model.AdminClaims{}
	if err := s.parse(tokenString, claims, audienceAdmin); err != nil {
		return nil, err
	}
	return claims, nil
}

// IssueUserToken creates a token for a survey taker
func (s *AuthService) IssueUserToken(userID, loginType string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", ErrMissingUserID
	}
	now := s.now()
	claims := &model.UserClaims{
		UserID:    userID,
		LoginType: loginType,
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{audienceUser},
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.userTokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

// ValidateUserToken validates a survey-taker JWT and returns claims
func (s *AuthService) ValidateUserToken(tokenString string) (*model.UserClaims, error) {
	claims := &model.UserClaims{}
	if err := s.parse(tokenString, claims, audienceUser); err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *AuthService) parse(tokenString string, claims jwt.Claims, audience string) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
