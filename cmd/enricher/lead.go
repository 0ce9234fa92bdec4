package main

import (
	"encoding/json"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/octobees/contact-enricher/internal/dto"
	"github.com/octobees/contact-enricher/internal/service/enrichment"
	"github.com/octobees/contact-enricher/internal/service/scoring"
)

var leadReq dto.EnrichRequest

var leadCmd = &cobra.Command{
	Use:   "lead",
	Short: "Enrich a single lead and print the result as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(leadReq.Name) == "" {
			return eris.New("--name is required")
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		enricher := enrichment.NewFromConfig(cfg, zap.L())
		result := enricher.Enrich(ctx, leadReq.Lead())

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(dto.EnrichResponse{
			LeadID: leadReq.LeadID,
			Result: result,
			Score:  scoring.ComputeScore(result),
		})
	},
}

func init() {
	f := leadCmd.Flags()
	f.StringVar(&leadReq.Name, "name", "", "full name of the person (required)")
	f.StringVar(&leadReq.LeadID, "lead-id", "", "caller's lead identifier, echoed in the output")
	leadReq.Company = f.String("company", "", "company name")
	leadReq.Website = f.String("website", "", "company website")
	leadReq.Email = f.String("email", "", "known email")
	leadReq.Phone = f.String("phone", "", "known phone")
	leadReq.LinkedInURL = f.String("linkedin", "", "LinkedIn profile URL")
	leadReq.Headline = f.String("headline", "", "job title or headline")
	rootCmd.AddCommand(leadCmd)
}
