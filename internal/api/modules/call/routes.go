package call_module

import "github.com/gin-gonic/gin"

// Register routes for the call module
func RegisterRoutes(g *gin.RouterGroup) {
	// Telephony gateway routes
	group := g.Group("/call")
	group.POST("/incoming", IncomingCall)        // Greet an answered call
	group.POST("/process-speech", ProcessSpeech) // Reply to a caller utterance
	group.GET("/:call_id", GetCall)              // Inspect an active call
	group.POST("/:call_id/end", EndCall)         // Caller hung up

	// Manual testing without a live call
	g.POST("/test/conversation", TestConversation)
}
