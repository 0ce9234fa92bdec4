package handler

import (
	"context"

	"github.com/google/uuid"

	"github.com/octobees/contact-enricher/internal/entity"
	"github.com/octobees/contact-enricher/internal/repository"
)

type callbackStub struct {
	path      string
	payload   any
	requestID string
	err       error
}

func (s *callbackStub) PostJSON(ctx context.Context, path string, payload any, requestID string) error {
	s.path = path
	s.payload = payload
	s.requestID = requestID
	return s.err
}

type enricherStub struct {
	lead   entity.Lead
	result entity.EnrichmentResult
	calls  int
}

func (s *enricherStub) Enrich(ctx context.Context, lead entity.Lead) entity.EnrichmentResult {
	s.calls++
	s.lead = lead
	return s.result
}

type storeStub struct {
	saved  map[uuid.UUID]entity.EnrichmentResult
	record *repository.StoredEnrichment
	err    error
}

func (s *storeStub) Save(ctx context.Context, leadID uuid.UUID, result entity.EnrichmentResult) error {
	if s.err != nil {
		return s.err
	}
	if s.saved == nil {
		s.saved = map[uuid.UUID]entity.EnrichmentResult{}
	}
	s.saved[leadID] = result
	return nil
}

func (s *storeStub) Get(ctx context.Context, leadID uuid.UUID) (*repository.StoredEnrichment, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.record == nil {
		return nil, repository.ErrEnrichmentNotFound
	}
	return s.record, nil
}
