package main

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/octobees/contact-enricher/internal/dto"
	"github.com/octobees/contact-enricher/internal/entity"
	"github.com/octobees/contact-enricher/internal/service/enrichment"
	"github.com/octobees/contact-enricher/internal/service/scoring"
)

const maxLineBytes = 1 << 20

var (
	batchIn          string
	batchOut         string
	batchConcurrency int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Enrich leads from a JSONL file, one result line per input line",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		in, err := os.Open(batchIn)
		if err != nil {
			return eris.Wrap(err, "open input")
		}
		defer in.Close()

		out := cmd.OutOrStdout()
		if batchOut != "" {
			f, err := os.Create(batchOut)
			if err != nil {
				return eris.Wrap(err, "create output")
			}
			defer f.Close()
			out = f
		}

		concurrency := batchConcurrency
		if concurrency <= 0 {
			concurrency = cfg.BatchConcurrency
		}
		enricher := enrichment.NewFromConfig(cfg, zap.L())
		return processBatch(ctx, in, out, concurrency, enricher.Enrich)
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchIn, "in", "", "JSONL file of leads")
	batchCmd.Flags().StringVar(&batchOut, "out", "", "result file (default stdout)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "parallel enrichments (default BATCH_CONCURRENCY)")
	_ = batchCmd.MarkFlagRequired("in")
	rootCmd.AddCommand(batchCmd)
}

// enrichFunc runs enrichment for one lead.
type enrichFunc func(ctx context.Context, lead entity.Lead) entity.EnrichmentResult

// processBatch reads every lead from r, enriches them with at most
// concurrency in flight and writes the results to w in input order. Lines
// that do not parse yield a failed result rather than aborting the run.
func processBatch(ctx context.Context, r io.Reader, w io.Writer, concurrency int, enrich enrichFunc) error {
	reqs, parseErrs, err := readLeads(r)
	if err != nil {
		return err
	}
	if len(reqs) == 0 {
		zap.L().Info("no leads found")
		return nil
	}

	zap.L().Info("processing batch",
		zap.Int("leads", len(reqs)),
		zap.Int("concurrency", concurrency),
	)

	results := make([]dto.EnrichResponse, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))
	for i, req := range reqs {
		if parseErrs[i] != nil {
			results[i] = dto.EnrichResponse{LeadID: req.LeadID, Result: invalidLead(parseErrs[i])}
			continue
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			result := enrich(gctx, req.Lead())
			results[i] = dto.EnrichResponse{LeadID: req.LeadID, Result: result, Score: scoring.ComputeScore(result)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "batch interrupted")
	}

	enc := json.NewEncoder(w)
	var failed int
	for _, res := range results {
		if res.Result.Status == entity.StatusFailed {
			failed++
		}
		if err := enc.Encode(res); err != nil {
			return eris.Wrap(err, "write result")
		}
	}

	zap.L().Info("batch complete",
		zap.Int("leads", len(results)),
		zap.Int("failed", failed),
	)
	return nil
}

func readLeads(r io.Reader) ([]dto.EnrichRequest, []error, error) {
	var (
		reqs []dto.EnrichRequest
		errs []error
	)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64<<10), maxLineBytes)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var req dto.EnrichRequest
		if err := json.Unmarshal([]byte(text), &req); err != nil {
			reqs = append(reqs, dto.EnrichRequest{})
			errs = append(errs, eris.Wrapf(err, "line %d", line))
			continue
		}
		reqs = append(reqs, req)
		errs = append(errs, nil)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, eris.Wrap(err, "read input")
	}
	return reqs, errs, nil
}

func invalidLead(err error) entity.EnrichmentResult {
	return entity.EnrichmentResult{
		AllEmailsFound: []entity.FoundContact{},
		AllPhonesFound: []entity.FoundContact{},
		Status:         entity.StatusFailed,
		Error:          err.Error(),
	}
}
