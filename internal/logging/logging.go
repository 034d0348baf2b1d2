// Package logging builds the arbor logger shared by every component.
package logging

import (
	"strings"

	"github.com/ternarybob/arbor"
	arbormodels "github.com/ternarybob/arbor/models"

	"github.com/seenimoa/marketbrief/internal/config"
)

const timeFormat = "15:04:05"

// New returns a console logger configured from cfg. An empty level means info.
func New(cfg config.LoggingConfig) arbor.ILogger {
	level := strings.ToLower(strings.TrimSpace(cfg.Level))
	if level == "" {
		level = "info"
	}

	outputType := arbormodels.OutputFormatLogfmt
	if cfg.Format == "json" {
		outputType = arbormodels.OutputFormatJSON
	}

	return arbor.NewLogger().WithConsoleWriter(arbormodels.WriterConfiguration{
		Type:             arbormodels.LogWriterTypeConsole,
		TimeFormat:       timeFormat,
		OutputType:       outputType,
		DisableTimestamp: false,
	}).WithLevelFromString(level)
}

// Discard returns a logger with no writers attached.
func Discard() arbor.ILogger {
	return arbor.NewLogger()
}
