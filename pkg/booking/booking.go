// Package booking forwards extracted appointment requests to a tenant's booking webhook
package booking

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/ethanbaker/receptionist/pkg/appointment"
	"github.com/google/uuid"
)

// ErrNoEndpoint is reported when a tenant has no booking webhook configured
var ErrNoEndpoint = errors.New("no endpoint configured")

// keyNamespace scopes idempotency keys so they never collide with other UUIDv5 users
var keyNamespace = uuid.MustParse("6f1d2c86-43a5-4a4e-9a57-4b8f0d3c8e21")

// Result is the outcome of a booking attempt
type Result struct {
	Success    bool            `json:"success"`
	StatusCode int             `json:"status_code,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Reason     string          `json:"reason,omitempty"`
}

// Payload is the JSON body posted to a booking webhook
type Payload struct {
	BusinessName string              `json:"business_name"`
	ClientPhone  string              `json:"client_phone"`
	Appointment  appointment.Request `json:"appointment"`
	Timestamp    string              `json:"timestamp"`
}

// IdempotencyKey derives a deterministic key for a call's appointment request. A model that
// emits the same directive twice within a call yields the same key
func IdempotencyKey(callID string, req appointment.Request) string {
	var buf bytes.Buffer
	buf.WriteString(callID)
	buf.WriteByte('\n')

	// Struct field order makes the encoding canonical
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(req)

	return uuid.NewSHA1(keyNamespace, buf.Bytes()).String()
}
