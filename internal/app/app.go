// Package app wires the configured collaborators into the report pipeline
// shared by the CLI, the HTTP API and the scheduler.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/seenimoa/marketbrief/internal/config"
	"github.com/seenimoa/marketbrief/internal/datasource"
	"github.com/seenimoa/marketbrief/internal/dispatch"
	"github.com/seenimoa/marketbrief/internal/infra"
	"github.com/seenimoa/marketbrief/internal/llm"
	"github.com/seenimoa/marketbrief/internal/report"
	"github.com/seenimoa/marketbrief/pkg/models"
)

// Assembler produces a ReportResult for a ticker list.
type Assembler interface {
	Assemble(ctx context.Context, tickers []string) (*models.ReportResult, error)
}

// Report is an assembled and rendered report.
type Report struct {
	Result   *models.ReportResult
	PDF      []byte
	Filename string
}

// App is the assembled pipeline. It is safe for concurrent use.
type App struct {
	cfg       *config.Config
	assembler Assembler
	pdf       *report.PDFRenderer
	text      report.TextRenderer
	mailer    *dispatch.Mailer
	now       func() time.Time
	logger    arbor.ILogger
}

// New builds every collaborator from cfg. A missing LLM configuration is not
// fatal: narratives come back empty.
func New(ctx context.Context, cfg *config.Config, logger arbor.ILogger) (*App, error) {
	priceClient := infra.NewHTTPClient(cfg.Prices.RequestTimeout)
	fetcher := datasource.NewPriceFetcher(
		datasource.NewYFinance(priceClient, cfg.Prices),
		infra.NewPacer(cfg.Prices.Delay, cfg.Prices.Jitter),
		cfg.Report.DefaultTickers,
		cfg.Prices.RequestTimeout,
		logger,
	)

	scraper := datasource.NewHeadlineScraper(
		infra.NewHTTPClient(cfg.Scraper.Timeout),
		cfg.Scraper.UserAgent,
		cfg.Scraper.MaxHeadlines,
		datasource.NewBrowser(cfg.Scraper.Browser, cfg.Scraper.UserAgent, logger),
		logger,
	)

	completer, err := newCompleter(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, err
	}

	agg := report.NewAggregator(fetcher, scraper, completer, cfg.Report, logger)

	var mailer *dispatch.Mailer
	if cfg.Email.IsConfigured() {
		mailer = dispatch.NewMailer(dispatch.NewSMTPTransport(cfg.Email), cfg.Email, logger)
	}

	return NewWithParts(cfg, agg, mailer, logger), nil
}

// NewWithParts assembles an App from prebuilt collaborators. mailer may be nil.
func NewWithParts(cfg *config.Config, assembler Assembler, mailer *dispatch.Mailer, logger arbor.ILogger) *App {
	title := cfg.Report.DocumentTitle()
	return &App{
		cfg:       cfg,
		assembler: assembler,
		pdf:       report.NewPDFRenderer(title, logger),
		text:      report.TextRenderer{Title: title},
		mailer:    mailer,
		now:       time.Now,
		logger:    logger,
	}
}

// newCompleter returns the LLM router, or a completer that always fails when
// no provider has credentials.
func newCompleter(ctx context.Context, cfg config.LLMConfig, logger arbor.ILogger) (llm.Completer, error) {
	router, err := llm.NewRouterFromConfig(ctx, cfg, logger)
	if err == nil {
		return router, nil
	}
	if !errors.Is(err, llm.ErrNoProviders) {
		return nil, fmt.Errorf("LLM setup failed: %w", err)
	}

	logger.Warn().Msg("No LLM provider configured; narratives will be empty")
	return llm.FuncCompleter(func(context.Context, string) (string, error) {
		return "", &llm.CompletionError{Provider: "none", Err: llm.ErrNoProviders}
	}), nil
}

// Config returns the configuration the app was built from.
func (a *App) Config() *config.Config { return a.cfg }

// CanEmail reports whether SMTP delivery is configured.
func (a *App) CanEmail() bool { return a.mailer != nil }

// Assemble runs the pipeline without rendering.
func (a *App) Assemble(ctx context.Context, tickers []string) (*models.ReportResult, error) {
	return a.assembler.Assemble(ctx, tickers)
}

// Generate assembles and renders a PDF report.
func (a *App) Generate(ctx context.Context, tickers []string) (*Report, error) {
	result, err := a.assembler.Assemble(ctx, tickers)
	if err != nil {
		return nil, err
	}

	generatedAt := result.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = a.now()
	}

	pdf, err := a.pdf.Render(result, generatedAt)
	if err != nil {
		a.logger.Error().Str("report_id", result.ID).Err(err).Msg("PDF rendering failed")
		return nil, err
	}

	return &Report{
		Result:   result,
		PDF:      pdf,
		Filename: report.Filename(a.cfg.Report.FilenamePrefix, generatedAt),
	}, nil
}

// Text renders result as plain text.
func (a *App) Text(result *models.ReportResult) string {
	generatedAt := result.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = a.now()
	}
	return a.text.Render(result, generatedAt)
}

// EmailReport generates a report and mails it. to overrides the configured
// recipients when non-empty. Delivery failures yield false, not an error;
// the error is reserved for pipeline failures.
func (a *App) EmailReport(ctx context.Context, tickers, to []string) (bool, error) {
	if a.mailer == nil {
		a.logger.Warn().Msg("Email requested but SMTP is not configured")
		return false, nil
	}

	rep, err := a.Generate(ctx, tickers)
	if err != nil {
		return false, err
	}

	return a.Deliver(ctx, rep, to), nil
}

// Deliver mails an already generated report. It returns false when SMTP is
// not configured or the transport fails.
func (a *App) Deliver(ctx context.Context, rep *Report, to []string) bool {
	if a.mailer == nil {
		return false
	}
	return a.mailer.SendReport(ctx, dispatch.Message{
		To:       to,
		PDF:      rep.PDF,
		Filename: rep.Filename,
	})
}
