package dto

import "time"

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginResponse struct {
	Token     string       `json:"token"`
	SessionId string       `json:"session_id"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

type UserResponse struct {
	Id             string   `json:"id"`
	Email          string   `json:"email"`
	FullName       string   `json:"full_name"`
	Role           string   `json:"role"`
	AllowedModules []string `json:"allowed_modules"`
	AllowedAgents  []int    `json:"allowed_agents"`
}

type AuthStatusResponse struct {
	Authenticated bool          `json:"authenticated"`
	User          *UserResponse `json:"user,omitempty"`
	ExpiresAt     *time.Time    `json:"expires_at,omitempty"`
}
