package admins

import (
	"strings"
	"time"

	"github.com/wolfman30/careconnect/internal/auth"
)

// Permissions are the fine-grained grants an admin may hold. Superadmins
// implicitly hold all of them.
type Permissions struct {
	ManageDoctors  bool `json:"manageDoctors"`
	ManagePatients bool `json:"managePatients"`
	ManagePricing  bool `json:"managePricing"`
}

// Claims converts the grants into token permission names.
func (p Permissions) Claims() []string {
	var out []string
	if p.ManageDoctors {
		out = append(out, auth.PermManageDoctors)
	}
	if p.ManagePatients {
		out = append(out, auth.PermManagePatients)
	}
	if p.ManagePricing {
		out = append(out, auth.PermManagePricing)
	}
	return out
}

type Admin struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"-"`
	Role         string      `json:"role"`
	Permissions  Permissions `json:"permissions"`
	IsActive     bool        `json:"isActive"`
	LastLoginAt  *time.Time  `json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type CreateRequest struct {
	Name        string      `json:"name" validate:"required"`
	Email       string      `json:"email" validate:"required,email"`
	Password    string      `json:"password" validate:"required,min=8"`
	Role        string      `json:"role" validate:"omitempty,oneof=admin superadmin"`
	Permissions Permissions `json:"permissions"`
}

type PermissionsRequest struct {
	Permissions Permissions `json:"permissions"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
