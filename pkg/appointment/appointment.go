// Package appointment detects and parses booking directives emitted by the language model.
//
// A directive is the literal Marker followed by a single JSON object whose fields are those
// of Request:
//
//	BOOK_APPOINTMENT: {"client_name":"Ana","phone_number":"+15551234567","preferred_date":"2026-03-03","preferred_time":"10:00"}
package appointment

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// Marker introduces a booking directive in generated text
const Marker = "BOOK_APPOINTMENT:"

// ErrNoDirective is returned by Parse when the text carries no Marker
var ErrNoDirective = errors.New("no booking directive")

var validate = newValidator()

// newValidator registers notblank so whitespace-only values count as missing
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	return v
}

// Request is the appointment a caller asked for
type Request struct {
	ClientName    string `json:"client_name" validate:"required,notblank"`
	PhoneNumber   string `json:"phone_number" validate:"required,notblank"`
	PreferredDate string `json:"preferred_date" validate:"required,notblank"`
	PreferredTime string `json:"preferred_time" validate:"required,notblank"`
	ServiceType   string `json:"service_type,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

// DirectiveError reports a directive whose payload is missing, malformed or incomplete
type DirectiveError struct {
	Payload string
	Err     error
}

func (e *DirectiveError) Error() string {
	return fmt.Sprintf("malformed booking directive: %v", e.Err)
}

func (e *DirectiveError) Unwrap() error {
	return e.Err
}

// HasDirective reports whether text contains the booking Marker
func HasDirective(text string) bool {
	return strings.Contains(text, Marker)
}

// Parse extracts the Request carried by a directive. It returns ErrNoDirective when the
// Marker is absent and a *DirectiveError when the payload after it is not a single JSON
// object with every required field set
func Parse(text string) (Request, error) {
	_, after, found := strings.Cut(text, Marker)
	if !found {
		return Request{}, ErrNoDirective
	}

	payload := strings.TrimSpace(after)
	if payload == "" {
		return Request{}, &DirectiveError{Err: errors.New("empty payload")}
	}

	var req Request
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return Request{}, &DirectiveError{Payload: payload, Err: err}
	}

	if err := validate.Struct(req); err != nil {
		return Request{}, &DirectiveError{Payload: payload, Err: err}
	}

	return req, nil
}

// Extract returns the Request carried by text, if any. It never fails: a missing or
// invalid directive is reported as no appointment
func Extract(text string) (Request, bool) {
	req, err := Parse(text)
	if err != nil {
		return Request{}, false
	}
	return req, true
}

// Encode renders a Request in directive form
func Encode(req Request) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(req); err != nil {
		return "", fmt.Errorf("failed to encode appointment: %w", err)
	}
	return Marker + " " + strings.TrimSpace(buf.String()), nil
}
