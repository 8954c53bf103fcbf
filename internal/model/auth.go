package model

import "github.com/golang-jwt/jwt/v5"

// AdminClaims are JWT claims for administrator authentication
type AdminClaims struct {
	AdminID string `json:"adminId"`
	jwt.RegisteredClaims
}

// UserClaims are JWT claims for a survey taker
type UserClaims struct {
	UserID    string `json:"userId"`
	LoginType string `json:"loginType,omitempty"`
	jwt.RegisteredClaims
}

// LoginRequest is the request body for admin login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned after successful admin login
type LoginResponse struct {
	Token   string `json:"token"`
	AdminID string `json:"adminId"`
}

// SessionRequest opens a survey-taker session
type SessionRequest struct {
	UserID    string `json:"userId"`
	Name      string `json:"name"`
	LoginType string `json:"loginType"`
}

// SessionResponse carries the survey-taker token
type SessionResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}
