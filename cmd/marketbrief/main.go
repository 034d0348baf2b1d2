// marketbrief: daily market summary reports.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"

	"github.com/seenimoa/marketbrief/api"
	"github.com/seenimoa/marketbrief/internal/app"
	"github.com/seenimoa/marketbrief/internal/config"
	"github.com/seenimoa/marketbrief/internal/logging"
	"github.com/seenimoa/marketbrief/internal/scheduler"
	"github.com/seenimoa/marketbrief/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// scheduledRunTimeout bounds one scheduled generate-and-mail run.
const scheduledRunTimeout = 15 * time.Minute

var (
	cfg    *config.Config
	logger arbor.ILogger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "marketbrief",
	Short: "marketbrief: market summary reports",
	Long: `marketbrief fetches recent closing prices for a list of tickers, scrapes
financial news headlines, asks an LLM for a market summary and per-sector
analysis, and renders the result as a PDF that can be downloaded, saved or
emailed on a schedule.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.Logging.Level = level
		}
		logger = logging.New(cfg.Logging)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(statusCmd)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("marketbrief %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Report Command ---

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a market report",
	Long: `Generate a market report, print it as text and save the PDF.

Examples:
  marketbrief report
  marketbrief report --tickers "AAPL, MSFT"
  marketbrief report --tickers nvda,amd --pdf ./nvda.pdf
  marketbrief report --email --to desk@example.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		rawTickers, _ := cmd.Flags().GetString("tickers")
		pdfPath, _ := cmd.Flags().GetString("pdf")
		email, _ := cmd.Flags().GetBool("email")
		to, _ := cmd.Flags().GetStringSlice("to")

		a, err := app.New(ctx, cfg, logger)
		if err != nil {
			return err
		}
		if email && !a.CanEmail() {
			return errors.New("--email requires email.smtp_host, email.smtp_port and email.from")
		}
		if email && len(to) == 0 && !cfg.Email.HasRecipients() {
			return errors.New("--email needs --to or email.to")
		}

		rep, err := a.Generate(ctx, utils.ParseTickerList(rawTickers))
		if err != nil {
			return fmt.Errorf("report failed: %w", err)
		}

		fmt.Println(a.Text(rep.Result))

		if pdfPath == "" {
			pdfPath = filepath.Join(cfg.Report.OutputDir, rep.Filename)
		}
		if err := writeFile(pdfPath, rep.PDF); err != nil {
			return err
		}
		fmt.Printf("PDF saved to %s\n", pdfPath)

		if email {
			if !a.Deliver(ctx, rep, to) {
				return errors.New("report email was not delivered")
			}
			fmt.Println("Report emailed")
		}
		return nil
	},
}

func init() {
	reportCmd.Flags().String("tickers", "", `comma-separated tickers (default: report.default_tickers)`)
	reportCmd.Flags().String("pdf", "", "PDF output path (default: <report.output_dir>/<prefix>_<timestamp>.pdf)")
	reportCmd.Flags().Bool("email", false, "email the PDF to the configured recipients")
	reportCmd.Flags().StringSlice("to", nil, "recipient override for --email")
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		a, err := app.New(ctx, cfg, logger)
		if err != nil {
			return err
		}

		addr := net.JoinHostPort(cfg.API.Host, strconv.Itoa(cfg.API.Port))
		return api.NewServer(cfg, a, logger, version).ListenAndServe(ctx, addr)
	},
}

// --- Schedule Command ---

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Email the report on the configured cron schedule",
	Long: `Run in the foreground and email a report with the default tickers each
time schedule.cron fires in schedule.timezone. Stops on SIGINT/SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		a, err := app.New(ctx, cfg, logger)
		if err != nil {
			return err
		}
		if !cfg.Email.HasRecipients() {
			return errors.New("schedule requires email.smtp_host, email.smtp_port, email.from and at least one email.to")
		}

		sched, err := scheduler.New(cfg.Schedule, scheduledRunTimeout, logger)
		if err != nil {
			return err
		}

		err = sched.Schedule("daily-report", func(ctx context.Context) error {
			ok, err := a.EmailReport(ctx, nil, nil)
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("report email was not delivered")
			}
			return nil
		})
		if err != nil {
			return err
		}

		sched.Start()
		logger.Info().
			Str("cron", cfg.Schedule.Cron).
			Str("timezone", cfg.Schedule.Timezone).
			Str("next_run", utils.DisplayTime(sched.NextAfter(time.Now()))).
			Msg("Scheduler running")

		<-ctx.Done()
		logger.Info().Msg("Stopping scheduler...")
		<-sched.Stop().Done()
		return nil
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  marketbrief: System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Printf("  Time:          %s\n", utils.DisplayTime(time.Now()))
		fmt.Println()

		fmt.Println("  Configuration:")
		fmt.Printf("    Tickers:       %v\n", cfg.Report.DefaultTickers)
		fmt.Printf("    Sectors:       %d\n", len(cfg.Report.Sectors))
		fmt.Printf("    News Sources:  %d\n", len(cfg.Report.NewsSources))
		fmt.Printf("    Title:         %s\n", cfg.Report.DocumentTitle())
		model := cfg.LLM.Model
		if model == "" {
			model = "provider default"
		}
		fmt.Printf("    LLM Provider:  %s (model: %s) fallbacks: %v\n", cfg.LLM.Primary, model, cfg.LLM.Fallbacks)
		fmt.Printf("    API Server:    %s:%d\n", cfg.API.Host, cfg.API.Port)
		fmt.Printf("    Email:         %v (recipients: %d)\n", cfg.Email.IsConfigured(), len(cfg.Email.To))

		if sched, err := scheduler.New(cfg.Schedule, 0, logger); err != nil {
			fmt.Printf("    Schedule:      invalid (%v)\n", err)
		} else {
			fmt.Printf("    Schedule:      %s %s (next: %s)\n", cfg.Schedule.Cron, cfg.Schedule.Timezone, utils.DisplayTime(sched.NextAfter(time.Now())))
		}
		fmt.Println()

		fmt.Println("  API Keys:")
		for _, k := range config.CheckAPIKeys(cfg) {
			status := "❌ not set"
			if k.IsSet {
				status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-25s %s\n", k.Name+":", status)
		}

		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}
