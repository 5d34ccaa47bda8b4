package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RoleStudent    UserRole = "STUDENT"
)

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	Campus       string     `db:"campus" json:"campus"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// UserProfileSummary is the normalized view the moderation queue renders for
// complaints filed against a user.
type UserProfileSummary struct {
	ID            string   `db:"id" json:"id"`
	Email         string   `db:"email" json:"email"`
	FullName      string   `db:"full_name" json:"full_name"`
	Role          UserRole `db:"role" json:"role"`
	Campus        string   `db:"campus" json:"campus"`
	Active        bool     `db:"active" json:"active"`
	MaterialCount int      `db:"material_count" json:"material_count"`
	PostCount     int      `db:"post_count" json:"post_count"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
