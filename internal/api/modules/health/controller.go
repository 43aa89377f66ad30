package health

import (
	"time"

	"github.com/ethanbaker/receptionist/pkg/sdk"
	"github.com/gin-gonic/gin"
)

// getStatus reports that the API is up
func getStatus(c *gin.Context) {
	status := sdk.HealthStatus{Status: "healthy", Timestamp: time.Now().UTC()}
	c.JSON(sdk.NewSuccessResponse("Service is healthy", status).AsGinResponse())
}
