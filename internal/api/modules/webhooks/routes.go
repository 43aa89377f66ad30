package webhooks_module

import "github.com/gin-gonic/gin"

// Register routes for the webhooks module
func RegisterRoutes(g *gin.RouterGroup) {
	group := g.Group("/webhooks")
	group.POST("/appointment-status/:tenant_id", AppointmentStatus) // Booking system callbacks
}
