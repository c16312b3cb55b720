package server

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/mail"
	"strconv"
	"strings"

	"organlink/pkg/types"

	"github.com/go-playground/form/v4"
)

const maxBodyBytes = 1 << 20

var decoder = form.NewDecoder()

// FieldError is a single validation failure reported to the client.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type validationResponse struct {
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors"`
}

type fieldErrors []FieldError

func (e *fieldErrors) add(field, message string) {
	*e = append(*e, FieldError{Field: field, Message: message})
}

func (e *fieldErrors) required(field, value, message string) {
	if strings.TrimSpace(value) == "" {
		e.add(field, message)
	}
}

func (e *fieldErrors) email(field, value, message string) {
	if addr, err := mail.ParseAddress(strings.TrimSpace(value)); err != nil || addr.Address != strings.TrimSpace(value) {
		e.add(field, message)
	}
}

func (s *Service) writeValidation(w http.ResponseWriter, errs fieldErrors) {
	s.writeJSON(w, http.StatusUnprocessableEntity, validationResponse{
		Message: "Validation failed",
		Errors:  errs,
	})
}

// decodeBody fills dst from a JSON body or a url-encoded/multipart form,
// chosen by Content-Type.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil && err != http.ErrNotMultipart {
			return fmt.Errorf("invalid form payload: %w", err)
		}
		if err := decoder.Decode(dst, r.PostForm); err != nil {
			return fmt.Errorf("invalid form payload: %w", err)
		}
		return nil
	}

	if r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON payload: %w", err)
	}
	return nil
}

// truthy interprets checkbox and boolean inputs.
func truthy(v types.FlexString) bool {
	switch strings.ToLower(strings.TrimSpace(string(v))) {
	case "true", "on", "yes", "1":
		return true
	}
	return false
}

// intValue parses a whole number. ok is false when v is blank or fractional.
func intValue(v types.FlexString) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(string(v)))
	return n, err == nil
}
