// Package gateway is the ledger's HTTP front door. It validates envelopes
// before invoking contract operations, decoupling ingestion transport from
// ledger transaction semantics. It performs no retries and no deduplication;
// exactly-once semantics rest entirely on the contract's existence check.
package gateway

import (
	"github.com/gin-gonic/gin"
	"github.com/mr-ih/IoT-Blockchain-System/internal/ledger"
)

type Service struct {
	registry         *ledger.Registry
	maxBodySizeBytes int
}

func NewService(registry *ledger.Registry, maxBodySizeMB int) *Service {
	if registry == nil {
		panic("gateway: registry must not be nil")
	}
	if maxBodySizeMB <= 0 {
		maxBodySizeMB = 1 // default to 1MB
	}
	return &Service{
		registry:         registry,
		maxBodySizeBytes: maxBodySizeMB * 1024 * 1024,
	}
}

// RegisterRoutes registers the gateway routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/sensor-events", s.SubmitHandler)
	r.GET("/sensor-events", s.ListHandler)
	r.GET("/sensor-events/:eventID", s.ReadHandler)
	r.GET("/sensor-events/:eventID/exists", s.ExistsHandler)
	r.PUT("/sensor-events/:eventID", s.UpdateHandler)
	r.DELETE("/sensor-events/:eventID", s.DeleteHandler)
}
