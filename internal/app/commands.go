package app

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/yari-search/internal/engine"
	"github.com/sha1n/yari-search/internal/loader"
	mcputil "github.com/sha1n/yari-search/internal/mcp"
	"github.com/sha1n/yari-search/internal/render"
	"github.com/sha1n/yari-search/internal/search"
	"github.com/spf13/cobra"
)

// NewRootCommand builds the command tree.
func NewRootCommand(params RunParams, programName, version string) *cobra.Command {
	params = params.withDefaults()

	rootCmd := &cobra.Command{
		Use:          programName,
		Short:        "Index and search pre-built documentation pages",
		Version:      version,
		SilenceUsage: true,
	}
	rootCmd.SetOut(params.Out)
	rootCmd.SetErr(params.Err)

	RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		newIndexCommand(params, version),
		newSearchCommand(params, version),
		newAnalyzeCommand(params, version),
		newCompleteCommand(params, version),
		newStatusCommand(params, version),
		newMCPCommand(params, version),
	)

	return rootCmd
}

func newIndexCommand(params RunParams, version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index [--update] <buildroot>",
		Short: "Load every page under a build root into the index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := params.open(cmd, version)
			if err != nil {
				return err
			}
			defer s.close()

			flags := cmd.Flags()
			update, _ := flags.GetBool("update")
			changedOnly, _ := flags.GetBool("changed-only")
			stripHTML, _ := flags.GetBool("strip-html")

			summary, err := loader.New(s.engine).Run(cmd.Context(), loader.Options{
				BuildRoot:   args[0],
				Index:       s.settings.Index,
				StateDir:    s.settings.StateDir,
				Update:      update,
				ChangedOnly: changedOnly,
				StripHTML:   stripHTML,
				Progress:    render.NewProgress(params.Out),
				Out:         params.Out,
			})
			if summary != nil {
				slog.Info("Indexing finished", "run", summary.RunID, "indexed", summary.Indexed,
					"failed", summary.Failed, "skipped", summary.Skipped)
			}
			return err
		},
	}
	registerIndexFlags(cmd.Flags())
	return cmd
}

func newSearchCommand(params RunParams, version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [--show-highlights] <text>",
		Short: "Search the index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := params.open(cmd, version)
			if err != nil {
				return err
			}
			defer s.close()

			flags := cmd.Flags()
			showHighlights, _ := flags.GetBool("show-highlights")
			locale, _ := flags.GetString("locale")
			from, _ := flags.GetInt("from")
			archived, _ := flags.GetBool("archived")
			debug, _ := flags.GetBool("debug")

			searcher := search.NewSearcher(s.engine, s.settings.Index, params.Out)
			resp, err := searcher.Search(cmd.Context(), strings.Join(args, " "), search.Options{
				Locale:          locale,
				Size:            s.settings.Search.Size,
				From:            from,
				Highlight:       showHighlights,
				Debug:           debug,
				IncludeArchived: archived,
			})
			if err != nil {
				return err
			}

			r := render.New(params.Out)
			r.Suggestions(render.FilterSuggestions(resp.TitleSuggestions, resp.BodySuggestions))
			r.Summary(resp.Total, resp.Took)
			r.Hits(resp.Results, showHighlights)
			return nil
		},
	}
	registerSearchFlags(cmd.Flags())
	return cmd
}

func newAnalyzeCommand(params RunParams, version string) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <analyzer> <text>",
		Short: "Run one of the index's analyzers over text",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := params.open(cmd, version)
			if err != nil {
				return err
			}
			defer s.close()

			tokens, err := s.engine.Analyze(cmd.Context(), s.settings.Index, args[0], strings.Join(args[1:], " "))
			if err != nil {
				return fmt.Errorf("analyze failed: %w", err)
			}
			render.New(params.Out).Tokens(tokens)
			return nil
		},
	}
}

func newCompleteCommand(params RunParams, version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complete <prefix>",
		Short: "Complete page titles, most popular first",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			size, _ := cmd.Flags().GetInt("size")
			if size <= 0 {
				return fmt.Errorf("--size must be positive, got %d", size)
			}

			s, err := params.open(cmd, version)
			if err != nil {
				return err
			}
			defer s.close()

			searcher := search.NewSearcher(s.engine, s.settings.Index, nil)
			options, err := searcher.Complete(cmd.Context(), strings.Join(args, " "), size)
			if err != nil {
				return err
			}
			render.New(params.Out).Completions(options)
			return nil
		},
	}
	registerCompleteFlags(cmd.Flags())
	return cmd
}

func newStatusCommand(params RunParams, version string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show engine health, index size and the last indexing run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := params.open(cmd, version)
			if err != nil {
				return err
			}
			defer s.close()

			ctx := cmd.Context()
			status := render.Status{Index: s.settings.Index}

			status.Health, err = s.engine.Health(ctx)
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}

			count, err := s.engine.Count(ctx, s.settings.Index)
			switch {
			case errors.Is(err, engine.ErrIndexNotFound):
			case err != nil:
				return fmt.Errorf("count failed: %w", err)
			default:
				status.Documents = &count
			}

			history, err := loader.ReadHistory(s.settings.StateDir, s.settings.Index)
			if err != nil {
				slog.Error("Failed to read run history", "error", err)
			}
			status.LastRun = history.LastRun
			status.TrackedFiles = history.TrackedFiles
			status.Failing = history.Failing

			render.New(params.Out).Status(status)
			return nil
		},
	}
}

func newMCPCommand(params RunParams, version string) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve search as an MCP tool over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := params.open(cmd, version)
			if err != nil {
				return err
			}
			defer s.close()

			server := mcputil.CreateServer(mcputil.ServerConfig{
				Name:        s.settings.MCP.Name,
				Version:     version,
				Searcher:    search.NewSearcher(s.engine, s.settings.Index, nil),
				DefaultSize: s.settings.Search.Size,
			})

			// Use custom transport if provided (for testing), otherwise use stdio
			transport := params.CustomIOTransport
			if transport == nil {
				transport = &mcp.StdioTransport{}
			}
			slog.Info("Serving MCP over stdio", "index", s.settings.Index)
			return server.Run(cmd.Context(), transport)
		},
	}
}
