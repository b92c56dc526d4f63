package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LogConfig mirrors the logging section of the YAML configuration.
type LogConfig struct {
	Level         string
	EnableConsole bool
	EnableFile    bool
	LogFile       string
	BufferSize    int
	LogDir        string
}

// InitializeFromConfig builds the logger for one driver run and installs it as
// the global logger. console is used only when EnableConsole is set.
func InitializeFromConfig(runID string, cfg LogConfig, console io.Writer) (*Logger, error) {
	opts := Options{
		Level:      ParseLevel(cfg.Level),
		RunID:      runID,
		BufferSize: cfg.BufferSize,
	}
	if cfg.EnableConsole {
		opts.Console = console
	}
	if cfg.EnableFile {
		opts.FilePath = cfg.LogFile
		if opts.FilePath == "" {
			opts.FilePath = filepath.Join(cfg.LogDir, "warehouse.log")
		}
		if dir := filepath.Dir(opts.FilePath); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory: %w", err)
			}
		}
	}

	logger, err := NewLogger(opts)
	if err != nil {
		return nil, err
	}
	SetGlobalLogger(logger)
	return logger, nil
}

// Components
const (
	ComponentMain      = "main"
	ComponentConfig    = "config"
	ComponentWarehouse = "warehouse"
	ComponentCommand   = "command"
	ComponentHTTP      = "http"
	ComponentMetrics   = "metrics"
)

// Actions
const (
	ActionStart      = "start"
	ActionStop       = "stop"
	ActionRequest    = "request"
	ActionResponse   = "response"
	ActionReplay     = "replay"
	ActionParse      = "parse"
	ActionEvict      = "evict"
	ActionDump       = "dump"
	ActionValidation = "validation"
)
