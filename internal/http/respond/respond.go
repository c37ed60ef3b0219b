// Package respond holds the JSON envelope shared by every API handler.
package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/wolfman30/careconnect/internal/validation"
)

const maxBodyBytes = 1 << 20

// ErrorBody is the uniform failure payload.
type ErrorBody struct {
	Success bool                    `json:"success"`
	Message string                  `json:"message"`
	Errors  []validation.FieldError `json:"errors,omitempty"`
}

// MessageBody is the payload for deletes and other acknowledgements.
type MessageBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// JSON writes payload with the given status.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Error writes {success:false, message}.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorBody{Message: message})
}

// Message writes {success:true, message}.
func Message(w http.ResponseWriter, status int, message string) {
	JSON(w, status, MessageBody{Success: true, Message: message})
}

// Validation writes a 400 carrying the field error list.
func Validation(w http.ResponseWriter, err *validation.Error) {
	JSON(w, http.StatusBadRequest, ErrorBody{Message: "validation failed", Errors: err.Fields})
}

// Decode reads a JSON request body into dst, rejecting unknown trailing data.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
