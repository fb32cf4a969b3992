package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/yari-search/internal/config"
	"github.com/sha1n/yari-search/internal/engine"
	"github.com/sha1n/yari-search/internal/engine/blevengine"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RunParams contains dependencies for the commands
type RunParams struct {
	LoadSettings      func(*pflag.FlagSet) (*config.Settings, error)
	ValidSettings     func(*config.Settings) error
	OpenEngine        func(hosts []string) (engine.Engine, error)
	CustomIOTransport mcp.Transport // Optional: for testing with custom IO

	// Out receives command output, Err receives logs.
	Out io.Writer
	Err io.Writer
}

// DefaultRunParams returns production dependencies
func DefaultRunParams() RunParams {
	return RunParams{
		LoadSettings:  config.LoadSettingsWithFlags,
		ValidSettings: config.ValidateSettings,
		OpenEngine:    OpenEngine,
		Out:           os.Stdout,
		Err:           os.Stderr,
	}
}

// OpenEngine opens the embedded engine over the given index roots.
func OpenEngine(hosts []string) (engine.Engine, error) {
	eng, err := blevengine.Open(hosts)
	if err != nil {
		return nil, err
	}
	return eng, nil
}

// session is the per-command state: resolved settings and an open engine.
type session struct {
	settings *config.Settings
	engine   engine.Engine
}

func (p RunParams) withDefaults() RunParams {
	if p.Out == nil {
		p.Out = io.Discard
	}
	if p.Err == nil {
		p.Err = io.Discard
	}
	return p
}

// open loads and validates settings, configures logging and opens the engine.
func (p RunParams) open(cmd *cobra.Command, version string) (*session, error) {
	settings, err := p.LoadSettings(cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	// Validate settings for conflicting configurations
	if err := p.ValidSettings(settings); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Logs go to stderr so they never mix with command output
	slog.SetDefault(config.NewLogger(p.Err, settings))

	slog.Info("Starting yari-search", "version", version, "command", cmd.Name())
	config.Log(settings)

	eng, err := p.OpenEngine(settings.Hosts)
	if err != nil {
		return nil, fmt.Errorf("failed to open engine: %w", err)
	}

	return &session{settings: settings, engine: eng}, nil
}

func (s *session) close() {
	if err := s.engine.Close(); err != nil {
		slog.Error("Failed to close engine", "error", err)
	}
}
