package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	v1 "github.com/mr-ih/IoT-Blockchain-System/internal/api/v1"
	httperr "github.com/mr-ih/IoT-Blockchain-System/internal/core/errors"
	"github.com/mr-ih/IoT-Blockchain-System/internal/ledger"
)

const (
	msgReadBodyFailed = "Failed to read request body"
	msgInvalidJSON    = "Invalid JSON body"
	msgEventRecorded  = "Sensor event successfully recorded on ledger."
	msgEventUpdated   = "Sensor event successfully updated on ledger."
	msgEventDeleted   = "Sensor event successfully deleted from ledger."
)

// SubmitHandler handles HTTP POST requests for event ingestion.
//
// Missing required fields yield a 400 listing the absent fields before any
// contract invocation. Contract errors surface verbatim with a server-error
// status so operators can distinguish duplicate-write from infrastructure
// failures.
func (s *Service) SubmitHandler(c *gin.Context) {
	env, ok := s.parseEnvelope(c)
	if !ok {
		return
	}

	if missing := env.MissingFields(); len(missing) > 0 {
		slog.Warn("[Gateway] Rejecting envelope with missing fields",
			"event_id", env.EventID, "missing", missing)
		c.JSON(http.StatusBadRequest, httperr.Error(
			fmt.Sprintf("Missing required fields: %s", strings.Join(missing, ", "))))
		return
	}

	slog.Info("[Gateway] Received sensor event",
		"event_id", env.EventID,
		"device_type", env.DeviceType,
		"device_id", env.DeviceID,
		"event_type", env.EventType)

	contract, err := s.registry.ForDeviceType(env.DeviceType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, httperr.Error(err.Error()))
		return
	}

	result, err := contract.CreateEvent(c.Request.Context(), *env)
	if err != nil {
		slog.Warn("[Gateway] CreateEvent failed",
			"event_id", env.EventID, "error", err)
		c.JSON(http.StatusInternalServerError, httperr.Error(err.Error()))
		return
	}

	c.JSON(http.StatusOK, httperr.Success(msgEventRecorded, result))
}

// ListHandler returns recorded events as {"events": [...]}. The optional
// device_type query parameter scopes the enumeration to one contract;
// without it, every registered contract contributes its own records.
func (s *Service) ListHandler(c *gin.Context) {
	ctx := c.Request.Context()

	var contracts []*ledger.Contract
	if raw := c.Query("device_type"); raw != "" {
		contract, err := s.registry.ForDeviceType(v1.DeviceType(raw))
		if err != nil {
			c.JSON(http.StatusBadRequest, httperr.Error(err.Error()))
			return
		}
		contracts = []*ledger.Contract{contract}
	} else {
		contracts = s.registry.All()
	}

	events := make([]json.RawMessage, 0)
	for _, contract := range contracts {
		records, err := contract.GetAllEvents(ctx)
		if err != nil {
			slog.Error("[Gateway] GetAllEvents failed",
				"doc_type", contract.DocType(), "error", err)
			c.JSON(http.StatusInternalServerError, httperr.Error(err.Error()))
			return
		}
		events = append(events, records...)
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}

// ReadHandler returns the stored record bytes unchanged.
func (s *Service) ReadHandler(c *gin.Context) {
	eventID := c.Param("eventID")

	stored, err := s.registry.Keyspace().ReadEvent(c.Request.Context(), eventID)
	if err != nil {
		if errors.Is(err, ledger.ErrEventNotFound) {
			c.JSON(http.StatusNotFound, httperr.Error(err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, httperr.Error(err.Error()))
		return
	}

	c.Data(http.StatusOK, "application/json", stored)
}

// ExistsHandler is a cheap presence probe.
func (s *Service) ExistsHandler(c *gin.Context) {
	exists, err := s.registry.Keyspace().EventExists(c.Request.Context(), c.Param("eventID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, httperr.Error(err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"exists": exists})
}

// UpdateHandler fully replaces an existing record. The path eventID must
// match the body's eventID; there is no update-merge.
func (s *Service) UpdateHandler(c *gin.Context) {
	env, ok := s.parseEnvelope(c)
	if !ok {
		return
	}

	if env.EventID == "" {
		env.EventID = c.Param("eventID")
	}
	if env.EventID != c.Param("eventID") {
		c.JSON(http.StatusBadRequest, httperr.Error(
			fmt.Sprintf("eventID %q in body does not match path %q", env.EventID, c.Param("eventID"))))
		return
	}

	if missing := env.MissingFields(); len(missing) > 0 {
		c.JSON(http.StatusBadRequest, httperr.Error(
			fmt.Sprintf("Missing required fields: %s", strings.Join(missing, ", "))))
		return
	}

	contract, err := s.registry.ForDeviceType(env.DeviceType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, httperr.Error(err.Error()))
		return
	}

	result, err := contract.UpdateEvent(c.Request.Context(), *env)
	if err != nil {
		if errors.Is(err, ledger.ErrEventNotFound) {
			c.JSON(http.StatusNotFound, httperr.Error(err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, httperr.Error(err.Error()))
		return
	}

	c.JSON(http.StatusOK, httperr.Success(msgEventUpdated, result))
}

// DeleteHandler permanently removes a record.
func (s *Service) DeleteHandler(c *gin.Context) {
	eventID := c.Param("eventID")

	err := s.registry.Keyspace().DeleteEvent(c.Request.Context(), eventID)
	if err != nil {
		if errors.Is(err, ledger.ErrEventNotFound) {
			c.JSON(http.StatusNotFound, httperr.Error(err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, httperr.Error(err.Error()))
		return
	}

	c.JSON(http.StatusOK, httperr.Success(msgEventDeleted, nil))
}

// parseEnvelope reads the size-limited request body and decodes it into an
// Envelope. On failure it writes the error response itself and returns false.
func (s *Service) parseEnvelope(c *gin.Context) (*v1.Envelope, bool) {
	maxBytes := int64(s.maxBodySizeBytes)
	limitedBody := io.LimitReader(c.Request.Body, maxBytes+1) // +1 to detect oversized requests

	bodyBytes, err := io.ReadAll(limitedBody)
	if err != nil {
		slog.Error("[Gateway] Failed to read request body", "error", err)
		c.JSON(http.StatusInternalServerError, httperr.Error(msgReadBodyFailed))
		return nil, false
	}

	if int64(len(bodyBytes)) > maxBytes {
		slog.Warn("[Gateway] Request body exceeds maximum size",
			"size", len(bodyBytes), "max", maxBytes)
		c.JSON(http.StatusRequestEntityTooLarge, httperr.Error(
			"Request body exceeds maximum allowed size"))
		return nil, false
	}

	var env v1.Envelope
	if err := json.Unmarshal(bodyBytes, &env); err != nil {
		slog.Warn("[Gateway] Invalid JSON body received",
			"error", err, "payload_size", len(bodyBytes))
		c.JSON(http.StatusBadRequest, httperr.Error(msgInvalidJSON))
		return nil, false
	}

	return &env, true
}
