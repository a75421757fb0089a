package service

import (
	"strings"
	"sync"
	"time"

	"steel-copilot-be/internal/entity"

	"golang.org/x/crypto/bcrypt"
)

// UserDirectory holds the predefined demo accounts. Lookups are by email,
// case-insensitive. Password hashes are computed once at construction.
type UserDirectory struct {
	mu    sync.RWMutex
	users map[string]*entity.User
}

type seedUser struct {
	id             string
	email          string
	fullName       string
	password       string
	role           entity.UserRole
	allowedModules []string
	allowedAgents  []int
}

var seedUsers = []seedUser{
	{
		id:       "usr-admin",
		email:    "admin@example.com",
		fullName: "Admin User",
		password: "admin123",
		role:     entity.UserRoleAdmin,
		allowedModules: []string{
			"demand-planning", "supply-planning", "order-promising",
			"factory-planning", "inventory-optimization", "risk-management",
		},
		allowedAgents: []int{101, 102, 103, 104, 105, 106, 107, 108, 109, 110},
	},
	{
		id:             "usr-user",
		email:          "user@example.com",
		fullName:       "Regular User",
		password:       "user123",
		role:           entity.UserRoleUser,
		allowedModules: []string{"demand-planning", "supply-planning"},
		allowedAgents:  []int{101, 102},
	},
	{
		id:             "usr-manager",
		email:          "manager@example.com",
		fullName:       "Manager User",
		password:       "manager123",
		role:           entity.UserRoleUser,
		allowedModules: []string{"demand-planning", "supply-planning", "inventory-optimization"},
		allowedAgents:  []int{101, 102, 103, 104, 105},
	},
	{
		id:             "usr-analyst",
		email:          "analyst@example.com",
		fullName:       "Data Analyst",
		password:       "analyst123",
		role:           entity.UserRoleUser,
		allowedModules: []string{"demand-planning", "factory-planning"},
		allowedAgents:  []int{102, 103, 106},
	},
	{
		id:             "usr-planner",
		email:          "planner@example.com",
		fullName:       "Supply Planner",
		password:       "planner123",
		role:           entity.UserRoleUser,
		allowedModules: []string{"supply-planning", "order-promising"},
		allowedAgents:  []int{101, 104, 105, 107},
	},
}

func NewUserDirectory() *UserDirectory {
	d := &UserDirectory{users: make(map[string]*entity.User, len(seedUsers))}
	now := time.Now()
	for _, s := range seedUsers {
		hash, err := bcrypt.GenerateFromPassword([]byte(s.password), bcrypt.DefaultCost)
		if err != nil {
			continue
		}
		hashStr := string(hash)
		d.users[s.email] = &entity.User{
			Id:             s.id,
			Email:          s.email,
			FullName:       s.fullName,
			PasswordHash:   &hashStr,
			Role:           s.role,
			AllowedModules: s.allowedModules,
			AllowedAgents:  s.allowedAgents,
			CreatedAt:      now,
		}
	}
	return d
}

func (d *UserDirectory) FindByEmail(email string) *entity.User {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.users[strings.ToLower(strings.TrimSpace(email))]
}

func (d *UserDirectory) FindById(id string) *entity.User {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, u := range d.users {
		if u.Id == id {
			return u
		}
	}
	return nil
}
