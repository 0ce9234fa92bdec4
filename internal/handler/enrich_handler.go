package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/octobees/contact-enricher/internal/dto"
	"github.com/octobees/contact-enricher/internal/entity"
	middlewarepkg "github.com/octobees/contact-enricher/internal/middleware"
	"github.com/octobees/contact-enricher/internal/repository"
	"github.com/octobees/contact-enricher/internal/service/scoring"
)

// asyncTimeout bounds a background enrichment including its callback.
const asyncTimeout = 5 * time.Minute

// Enricher runs one enrichment.
type Enricher interface {
	Enrich(ctx context.Context, lead entity.Lead) entity.EnrichmentResult
}

// EnrichHandler serves synchronous and callback-based enrichment.
type EnrichHandler struct {
	enricher Enricher
	store    repository.EnrichmentsRepository
	callback CallbackPoster
	log      *zap.Logger
	// spawn runs background work; tests replace it to run inline.
	spawn func(func())
}

// NewEnrichHandler wires the handler. store and callback are optional: without
// a store nothing is persisted, without a callback async mode is refused.
func NewEnrichHandler(enricher Enricher, store repository.EnrichmentsRepository, callback CallbackPoster, log *zap.Logger) *EnrichHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &EnrichHandler{
		enricher: enricher,
		store:    store,
		callback: callback,
		log:      log,
		spawn:    func(f func()) { go f() },
	}
}

// Enrich handles POST /enrich.
func (h *EnrichHandler) Enrich(c echo.Context) error {
	var req dto.EnrichRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid JSON payload")
	}

	lead := req.Lead()
	req.LeadID = strings.TrimSpace(req.LeadID)
	if lead.Name == "" {
		return ValidationError(c, map[string]string{"name": "name is required"})
	}

	if req.Async {
		if h.callback == nil {
			return Error(c, http.StatusServiceUnavailable, "async enrichment is not configured")
		}
		if req.LeadID == "" {
			return ValidationError(c, map[string]string{"lead_id": "lead_id is required in async mode"})
		}
		rid := middlewarepkg.RequestIDFromContext(c)
		ctx := context.WithoutCancel(c.Request().Context())
		h.spawn(func() { h.runAsync(ctx, req.LeadID, lead, rid) })
		return Success(c, http.StatusAccepted, "enrichment queued", map[string]any{"lead_id": req.LeadID, "status": "queued"})
	}

	resp := h.run(c.Request().Context(), req.LeadID, lead)
	return Success(c, http.StatusOK, "lead enriched", resp)
}

// Get handles GET /enrichments/:lead_id.
func (h *EnrichHandler) Get(c echo.Context) error {
	if h.store == nil {
		return Error(c, http.StatusServiceUnavailable, "persistence is not configured")
	}
	leadID, err := uuid.Parse(c.Param("lead_id"))
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid lead_id")
	}

	record, err := h.store.Get(c.Request().Context(), leadID)
	if err != nil {
		if errors.Is(err, repository.ErrEnrichmentNotFound) {
			return Error(c, http.StatusNotFound, "enrichment not found")
		}
		h.log.Error("fetch enrichment failed", zap.String("lead_id", leadID.String()), zap.Error(err))
		return Error(c, http.StatusInternalServerError, "failed to fetch enrichment")
	}

	return Success(c, http.StatusOK, "ok", dto.EnrichResponse{
		LeadID: record.LeadID.String(),
		Result: record.Result,
		Score:  scoring.ComputeScore(record.Result),
	})
}

func (h *EnrichHandler) run(ctx context.Context, leadID string, lead entity.Lead) dto.EnrichResponse {
	result := h.enricher.Enrich(ctx, lead)
	h.persist(ctx, leadID, result)
	return dto.EnrichResponse{
		LeadID: leadID,
		Result: result,
		Score:  scoring.ComputeScore(result),
	}
}

// persist stores results for UUID lead ids; storage failures are logged and
// never fail the request.
func (h *EnrichHandler) persist(ctx context.Context, leadID string, result entity.EnrichmentResult) {
	if h.store == nil || leadID == "" {
		return
	}
	id, err := uuid.Parse(leadID)
	if err != nil {
		h.log.Debug("lead id is not a uuid, result not stored", zap.String("lead_id", leadID))
		return
	}
	if err := h.store.Save(ctx, id, result); err != nil {
		h.log.Warn("store enrichment failed", zap.String("lead_id", leadID), zap.Error(err))
	}
}

func (h *EnrichHandler) runAsync(ctx context.Context, leadID string, lead entity.Lead, requestID string) {
	ctx, cancel := context.WithTimeout(ctx, asyncTimeout)
	defer cancel()

	log := h.log.With(zap.String("lead_id", leadID), zap.String("request_id", requestID))
	resp := h.run(ctx, leadID, lead)
	if err := h.callback.PostJSON(ctx, CallbackPath, resp, requestID); err != nil {
		log.Warn("deliver enrichment callback failed", zap.Error(err))
		return
	}
	log.Info("enrichment delivered", zap.String("status", string(resp.Result.Status)))
}
