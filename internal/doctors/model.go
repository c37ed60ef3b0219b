package doctors

import (
	"strings"
	"time"
)

// Consultation modes a doctor can offer.
const (
	ConsultOnline  = "online"
	ConsultOffline = "offline"
	ConsultBoth    = "both"
)

// Blob kinds served by GET /api/doctor/{id}/document and /image.
const (
	BlobDocument = "document"
	BlobImage    = "image"
)

// Doctor is a registered practitioner. Document and Image are only loaded by
// the dedicated blob lookups.
type Doctor struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	Phone         string    `json:"phone,omitempty"`
	Speciality    string    `json:"speciality"`
	Experience    int       `json:"experience"`
	FeesCents     int64     `json:"feesCents"`
	ConsultType   string    `json:"consultType"`
	LicenseNumber string    `json:"licenseNumber,omitempty"`
	Education     string    `json:"education,omitempty"`
	HasDocument   bool      `json:"hasDocument"`
	HasImage      bool      `json:"hasImage"`
	Document      []byte    `json:"-"`
	Image         []byte    `json:"-"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// RegisterRequest is the body of POST /api/doctor/register. Document and
// Image are base64 in JSON.
type RegisterRequest struct {
	Name          string `json:"name" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required,min=8"`
	Phone         string `json:"phone"`
	Speciality    string `json:"speciality" validate:"required"`
	Experience    int    `json:"experience" validate:"gte=0"`
	FeesCents     int64  `json:"feesCents" validate:"gte=0"`
	ConsultType   string `json:"consultType" validate:"omitempty,oneof=online offline both"`
	LicenseNumber string `json:"licenseNumber"`
	Education     string `json:"education"`
	Document      []byte `json:"document"`
	Image         []byte `json:"image"`
}

// LoginRequest is shared by every login endpoint shape.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
