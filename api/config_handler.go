package api

import (
	"net/http"

	"github.com/seenimoa/marketbrief/internal/config"
	"github.com/seenimoa/marketbrief/pkg/models"
)

// ConfigView is the non-secret part of the running configuration returned by
// GET /api/v1/config.
type ConfigView struct {
	DefaultTickers []string                  `json:"default_tickers"`
	Sectors        []models.SectorDefinition `json:"sectors"`
	NewsSources    []models.NewsSource       `json:"news_sources"`
	Language       string                    `json:"language"`
	Title          string                    `json:"title"`
	LLMPrimary     string                    `json:"llm_primary"`
	LLMFallbacks   []string                  `json:"llm_fallbacks,omitempty"`
	LLMModel       string                    `json:"llm_model,omitempty"`
	Schedule       string                    `json:"schedule"`
	Timezone       string                    `json:"timezone"`
	EmailEnabled   bool                      `json:"email_enabled"`
}

func newConfigView(cfg *config.Config) ConfigView {
	return ConfigView{
		DefaultTickers: cfg.Report.DefaultTickers,
		Sectors:        cfg.Report.Sectors,
		NewsSources:    cfg.Report.NewsSources,
		Language:       cfg.Report.Language,
		Title:          cfg.Report.DocumentTitle(),
		LLMPrimary:     cfg.LLM.Primary,
		LLMFallbacks:   cfg.LLM.Fallbacks,
		LLMModel:       cfg.LLM.Model,
		Schedule:       cfg.Schedule.Cron,
		Timezone:       cfg.Schedule.Timezone,
		EmailEnabled:   cfg.Email.HasRecipients(),
	}
}

// handleGetConfig returns the running configuration without credentials.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    newConfigView(s.cfg),
	})
}

// handleGetConfigKeys returns the masked status of every credential.
func (s *Server) handleGetConfigKeys(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    config.CheckAPIKeys(s.cfg),
	})
}
