package entity

import "time"

type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

type User struct {
	Id             string
	Email          string
	FullName       string
	PasswordHash   *string
	Role           UserRole
	AllowedModules []string
	AllowedAgents  []int
	CreatedAt      time.Time
}

// Credential is the durable session record for one authenticated browser
// context: the minted token, the per-context session id used for
// single-session enforcement, and the absolute expiry.
type Credential struct {
	User      *User
	Token     string
	SessionId string
	ExpiresAt time.Time
}

// Valid reports whether the credential has not yet expired at the given time.
func (c *Credential) Valid(now time.Time) bool {
	return c != nil && now.Before(c.ExpiresAt)
}
