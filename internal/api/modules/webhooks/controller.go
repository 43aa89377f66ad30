package webhooks_module

import (
	"net/http"

	"github.com/ethanbaker/receptionist/internal/orchestrator"
	"github.com/ethanbaker/receptionist/pkg/sdk"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	orch   *orchestrator.Orchestrator
	logger *zap.Logger
)

// Init sets up the webhooks module
func Init(o *orchestrator.Orchestrator, l *zap.Logger) {
	orch = o
	logger = l.Named("webhooks")
}

// AppointmentStatus handles POST requests from a tenant's booking system reporting the
// status of an appointment the receptionist dispatched
func AppointmentStatus(c *gin.Context) {
	tenantID := c.Param("tenant_id")

	if _, err := orch.ResolveTenant(c.Request.Context(), tenantID, ""); err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusNotFound, "Tenant not found", nil).AsGinResponse())
		return
	}

	var req sdk.AppointmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Could not parse request body", err).AsGinResponse())
		return
	}

	logger.Info("Appointment status update",
		zap.String("tenant_id", tenantID),
		zap.String("status", req.Status),
		zap.String("appointment_id", req.AppointmentID),
		zap.ByteString("details", req.Details))

	c.JSON(sdk.NewSuccess("Status updated successfully").AsGinResponse())
}
