package service

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionExpired     = errors.New("session expired")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrSessionNotFound    = errors.New("conversation session not found")
	ErrModuleForbidden    = errors.New("module access denied")
	ErrAgentForbidden     = errors.New("agent access denied")
)
