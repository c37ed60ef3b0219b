package appointments

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// SlotRefs derives the identities that reserve a doctor's slot at an instant.
// bookingRef is keyed on the doctor's name and is always set. doctorRef is
// keyed on the doctor's email and is empty when no email is known. A booking
// conflicts with an earlier one when either ref matches, so the same doctor is
// caught whether or not a request carries DocEmail. Both refs are independent
// of the timezone the instant was expressed in.
func SlotRefs(doctorEmail, doctorName string, at time.Time) (bookingRef, doctorRef string) {
	instant := at.UTC().Format(time.RFC3339)
	bookingRef = slotHash("name", normalizeDoctorName(doctorName), instant)
	if email := strings.ToLower(strings.TrimSpace(doctorEmail)); email != "" {
		doctorRef = slotHash("email", email, instant)
	}
	return bookingRef, doctorRef
}

func slotHash(kind, who, instant string) string {
	sum := sha256.Sum256([]byte(kind + ":" + who + "|" + instant))
	return hex.EncodeToString(sum[:])
}

// normalizeDoctorName folds case, inner whitespace and a leading title.
func normalizeDoctorName(name string) string {
	fields := strings.Fields(strings.ToLower(name))
	if len(fields) > 1 {
		switch fields[0] {
		case "dr", "dr.", "doctor":
			fields = fields[1:]
		}
	}
	return strings.Join(fields, " ")
}
