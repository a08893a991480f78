package http

import (
	"github.com/gin-gonic/gin"
)

// Module mounts its routes on the groups it belongs to.
type Module interface {
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext carries the two surfaces of the service.
type RouterContext struct {
	// Channel is /api/v1/whatsapp. Requests come from the messaging
	// provider and carry its signature, never an operator token.
	Channel *gin.RouterGroup
	// Operator is /api/v1/operator behind AuthRequired.
	Operator *gin.RouterGroup
}
