// Package api exposes the alarm manager to companion apps over HTTP. Request
// and response bodies use the persisted alarm field names.
package api

import (
	"net/http"

	"bsid.es/despertador"
	"github.com/gin-gonic/gin"
)

// NewRouter returns a gin engine serving the alarm API.
func NewRouter(m *despertador.Manager) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(m.Logger))
	RegisterRoutes(r, m)
	return r
}

func RegisterRoutes(r *gin.Engine, m *despertador.Manager) {
	h := &handlers{m: m}

	v1 := r.Group("/v1")
	{
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong"})
		})

		v1.GET("/alarms", h.list)
		v1.GET("/alarms/count", h.count)
		v1.GET("/alarms/:id", h.get)
		v1.GET("/alarms/:id/next", h.next)
		v1.POST("/alarms", h.create)
		v1.PUT("/alarms/:id", h.modify)
		v1.PUT("/alarms/:id/enabled", h.setEnabled)
		v1.DELETE("/alarms/:id", h.delete)
	}
}
