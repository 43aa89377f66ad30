package call_module

import (
	"errors"
	"net/http"

	"github.com/ethanbaker/receptionist/internal/orchestrator"
	"github.com/ethanbaker/receptionist/pkg/sdk"
	"github.com/ethanbaker/receptionist/pkg/session"
	"github.com/gin-gonic/gin"
)

// IncomingCall handles POST requests announcing an answered call
func IncomingCall(c *gin.Context) {
	var req sdk.IncomingCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Could not parse request body", err).AsGinResponse())
		return
	}

	reply := callService.greet(c.Request.Context(), &req)
	c.JSON(sdk.NewSuccessResponse("Greeting generated", reply).AsGinResponse())
}

// ProcessSpeech handles POST requests carrying a caller utterance
func ProcessSpeech(c *gin.Context) {
	var req sdk.SpeechRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Could not parse request body", err).AsGinResponse())
		return
	}

	reply, err := callService.speech(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, orchestrator.ErrCallEnded) {
			c.JSON(sdk.NewErrorResponse(http.StatusConflict, "Call has ended", err).AsGinResponse())
			return
		}
		c.JSON(sdk.NewErrorResponse(http.StatusInternalServerError, "Failed to process speech", err).AsGinResponse())
		return
	}

	c.JSON(sdk.NewSuccessResponse("Reply generated", reply).AsGinResponse())
}

// GetCall handles GET requests for an active call's transcript
func GetCall(c *gin.Context) {
	callID := c.Param("call_id")

	sess, err := callService.orch.Transcript(c.Request.Context(), callID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.JSON(sdk.NewErrorResponse(http.StatusNotFound, "Call not found", err).AsGinResponse())
			return
		}
		c.JSON(sdk.NewErrorResponse(http.StatusInternalServerError, "Failed to get call", err).AsGinResponse())
		return
	}

	c.JSON(sdk.NewSuccessResponse("Call retrieved successfully", toTranscript(sess)).AsGinResponse())
}

// EndCall handles POST requests signalling the caller hung up
func EndCall(c *gin.Context) {
	callID := c.Param("call_id")

	if err := callService.orch.EndCall(c.Request.Context(), callID); err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusInternalServerError, "Failed to end call", err).AsGinResponse())
		return
	}

	c.JSON(sdk.NewSuccess("Call ended").AsGinResponse())
}

// TestConversation handles POST requests that try a tenant's receptionist without a call
func TestConversation(c *gin.Context) {
	var req sdk.TestConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Could not parse request body", err).AsGinResponse())
		return
	}

	reply, found, err := callService.testConversation(c.Request.Context(), &req)
	switch {
	case !found:
		c.JSON(sdk.NewErrorResponse(http.StatusNotFound, "Tenant not found", nil).AsGinResponse())
	case err != nil:
		c.JSON(sdk.NewErrorResponse(http.StatusInternalServerError, "Failed to run conversation", err).AsGinResponse())
	default:
		c.JSON(sdk.NewSuccessResponse("Reply generated", reply).AsGinResponse())
	}
}

// Helper method to convert a session to its sdk transcript
func toTranscript(sess *session.Session) sdk.CallTranscript {
	out := sdk.CallTranscript{
		CallID:            sess.CallID,
		TenantID:          sess.TenantID,
		AppointmentBooked: sess.AppointmentBooked,
		Turns:             make([]sdk.Turn, 0, len(sess.Turns)),
		CreatedAt:         sess.CreatedAt,
		ExpiresAt:         sess.ExpiresAt,
	}
	for _, turn := range sess.Turns {
		out.Turns = append(out.Turns, sdk.Turn{Role: string(turn.Role), Content: turn.Content, Timestamp: turn.Timestamp})
	}
	return out
}
