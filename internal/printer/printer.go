// Package printer renders send results and response history for the CLI.
package printer

import (
	"github.com/funnyzak/reqkit/internal/config"
	"github.com/funnyzak/reqkit/internal/logger"
	"github.com/funnyzak/reqkit/pkg/i18n"
	"github.com/funnyzak/reqkit/pkg/request"
)

// Printer abstracts CLI output.
type Printer interface {
	PrintResult(item request.RequestItem, entry request.ResponseHistoryItem) error
	PrintHistory(item request.RequestItem) error
}

// New creates the printer selected by cfg.Mode.
func New(cfg *config.OutputConfig, log logger.Logger, translator *i18n.Translator) Printer {
	if cfg == nil {
		cfg = &config.OutputConfig{Color: true, Pretty: true}
	}
	switch cfg.Mode {
	case "json":
		return NewJSONPrinter(log)
	default:
		return NewConsolePrinter(cfg, log, translator)
	}
}
