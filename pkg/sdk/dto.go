package sdk

import (
	"encoding/json"
	"time"

	"github.com/ethanbaker/api/pkg/api_types"
	"github.com/ethanbaker/receptionist/pkg/appointment"
)

// ApiResponse represents a standard API response structure
type ApiResponse[T any] struct {
	Status  api_types.StatusType `json:"status"`          // Status message
	Code    int                  `json:"code"`            // Status code
	Message string               `json:"message"`         // Human-readable message
	Data    T                    `json:"data,omitempty"`  // Optional data field for successful responses
	Error   any                  `json:"error,omitempty"` // Optional errors field for error responses
}

// AsGinResponse converts the ApiResponse to a format suitable for Gin framework
func (r ApiResponse[T]) AsGinResponse() (int, any) {
	return r.Code, r
}

func NewSuccess(message string) ApiResponse[any] {
	return ApiResponse[any]{
		Status:  api_types.StatusSuccess,
		Code:    200,
		Message: message,
	}
}

func NewSuccessResponse[T any](message string, data T) ApiResponse[T] {
	return ApiResponse[T]{
		Status:  api_types.StatusSuccess,
		Code:    200,
		Message: message,
		Data:    data,
	}
}

// NewErrorResponse builds an error envelope. Errors are reported by message only so
// internal details never leave the server
func NewErrorResponse(code int, message string, err error) ApiResponse[any] {
	resp := ApiResponse[any]{
		Status:  api_types.StatusError,
		Code:    code,
		Message: message,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

/** Call Module DTOs */

// IncomingCallRequest is sent by the telephony gateway when a call is answered.
// Either TenantID or To (the dialled number) identifies the tenant
type IncomingCallRequest struct {
	CallID   string `json:"call_id" binding:"required"`
	TenantID string `json:"tenant_id"`
	To       string `json:"to"`
	From     string `json:"from"`
}

// SpeechRequest carries one transcribed caller utterance
type SpeechRequest struct {
	CallID    string `json:"call_id" binding:"required"`
	TenantID  string `json:"tenant_id"`
	To        string `json:"to"`
	Utterance string `json:"utterance"`
}

// CallReply is the text the gateway should speak, with the voice to speak it in
type CallReply struct {
	CallID            string               `json:"call_id"`
	TenantID          string               `json:"tenant_id,omitempty"`
	Text              string               `json:"text"`
	Outcome           string               `json:"outcome"`
	AppointmentBooked bool                 `json:"appointment_booked"`
	Appointment       *appointment.Request `json:"appointment,omitempty"`
	VoiceID           string               `json:"voice_id,omitempty"`
	Hangup            bool                 `json:"hangup,omitempty"` // set when the call cannot continue
}

// TestConversationRequest runs a single utterance against a tenant without a live call
type TestConversationRequest struct {
	TenantID string `json:"tenant_id" binding:"required"`
	Message  string `json:"message" binding:"required"`
}

// Turn is one entry of a call transcript
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// CallTranscript is the stored session of a call
type CallTranscript struct {
	CallID            string    `json:"call_id"`
	TenantID          string    `json:"tenant_id"`
	AppointmentBooked bool      `json:"appointment_booked"`
	Turns             []Turn    `json:"turns"`
	CreatedAt         time.Time `json:"created_at"`
	ExpiresAt         time.Time `json:"expires_at"`
}

/** Webhook Module DTOs */

// AppointmentStatusRequest is posted back by a tenant's booking system
type AppointmentStatusRequest struct {
	Status        string          `json:"status" binding:"required"`
	AppointmentID string          `json:"appointment_id"`
	Details       json.RawMessage `json:"details,omitempty"`
}

/** Health Module DTOs */

// HealthStatus reports liveness
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}
