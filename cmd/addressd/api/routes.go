package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/manzanit0/geosearch/pkg/addrsearch"
)

// Capabilities is what the health endpoint reports about the resolver.
type Capabilities interface {
	PrimaryAvailable() bool
}

func Register(r gin.IRouter, caps Capabilities, lookup *addrsearch.Lookup, sessions *addrsearch.Registry) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":           "ok",
			"primaryAvailable": caps.PrimaryAvailable(),
			"cacheEntries":     lookup.Cache().Len(),
			"sessions":         sessions.Len(),
		})
	})

	geo := NewGeocodeController(lookup)
	v1 := r.Group("/v1")
	v1.GET("/geocode/search", geo.Search)
	v1.GET("/geocode/reverse", geo.Reverse)

	ctrl := NewSessionController(sessions)
	v1.POST("/sessions", ctrl.Create)

	s := v1.Group("/sessions/:id", ctrl.Load)
	s.GET("", ctrl.Get)
	s.DELETE("", ctrl.Delete)
	s.PUT("/query", ctrl.Query)
	s.PUT("/coordinates", ctrl.Coordinates)
	s.POST("/select", ctrl.Select)
	s.POST("/highlight", ctrl.Highlight)
	s.POST("/open", ctrl.Open)
	s.POST("/close", ctrl.Close)
	s.POST("/clear", ctrl.Clear)
}
