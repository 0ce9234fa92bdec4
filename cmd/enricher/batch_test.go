package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octobees/contact-enricher/internal/dto"
	"github.com/octobees/contact-enricher/internal/entity"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []dto.EnrichResponse {
	t.Helper()
	var out []dto.EnrichResponse
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var res dto.EnrichResponse
		require.NoError(t, json.Unmarshal(sc.Bytes(), &res))
		out = append(out, res)
	}
	return out
}

func TestProcessBatch_PreservesOrder(t *testing.T) {
	input := strings.Join([]string{
		`{"lead_id":"1","name":"Anna Schmidt","website":"schmidt.de"}`,
		``,
		`{"lead_id":"2","name":"Max Mustermann"}`,
		`{"lead_id":"3","name":"Jörg Müller"}`,
	}, "\n")

	var inFlight, peak int32
	enrich := func(ctx context.Context, lead entity.Lead) entity.EnrichmentResult {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		// The first lead finishes last.
		if lead.Name == "Anna Schmidt" {
			time.Sleep(20 * time.Millisecond)
		}
		atomic.AddInt32(&inFlight, -1)
		email := strings.ToLower(strings.Fields(lead.Name)[0]) + "@firma.de"
		return entity.EnrichmentResult{Email: &email, Status: entity.StatusPartial}
	}

	var out bytes.Buffer
	require.NoError(t, processBatch(context.Background(), strings.NewReader(input), &out, 2, enrich))

	results := decodeLines(t, &out)
	require.Len(t, results, 3)
	for i, id := range []string{"1", "2", "3"} {
		assert.Equal(t, id, results[i].LeadID)
	}
	assert.Equal(t, "anna@firma.de", *results[0].Result.Email)
	assert.Equal(t, "jörg@firma.de", *results[2].Result.Email)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
	assert.Positive(t, results[0].Score.Total)
}

func TestProcessBatch_InvalidLine(t *testing.T) {
	input := "{\"lead_id\":\"1\",\"name\":\"Anna Schmidt\"}\nnot json\n"
	var mu sync.Mutex
	var seen []string
	enrich := func(ctx context.Context, lead entity.Lead) entity.EnrichmentResult {
		mu.Lock()
		seen = append(seen, lead.Name)
		mu.Unlock()
		return entity.EnrichmentResult{Status: entity.StatusFailed}
	}

	var out bytes.Buffer
	require.NoError(t, processBatch(context.Background(), strings.NewReader(input), &out, 4, enrich))

	results := decodeLines(t, &out)
	require.Len(t, results, 2)
	assert.Equal(t, []string{"Anna Schmidt"}, seen)
	assert.Equal(t, entity.StatusFailed, results[1].Result.Status)
	assert.Contains(t, results[1].Result.Error, "line 2")
}

func TestProcessBatch_Empty(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, processBatch(context.Background(), strings.NewReader("\n\n"), &out, 1, nil))
	assert.Zero(t, out.Len())
}

func TestProcessBatch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	enrich := func(ctx context.Context, lead entity.Lead) entity.EnrichmentResult {
		return entity.EnrichmentResult{}
	}

	var out bytes.Buffer
	err := processBatch(ctx, strings.NewReader(`{"name":"Max Mustermann"}`), &out, 1, enrich)
	require.Error(t, err)
	assert.Zero(t, out.Len())
}
