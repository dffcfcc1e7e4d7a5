package router

import "github.com/gin-gonic/gin"

// Module is one HTTP feature area (users, invoices, health, debug) that registers its
// routes on the registry's group.
type Module interface {
	Register(rg *gin.RouterGroup)
}
