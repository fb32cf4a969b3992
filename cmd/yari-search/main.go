package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sha1n/yari-search/internal/app"
)

var (
	// Version is injected at build time
	Version = "dev"
	// Build is injected at build time
	Build = "unknown"
	// ProgramName is injected at build time
	ProgramName = "yari-search"
)

func main() {
	runMain(os.Args, os.Exit)
}

func runMain(args []string, exit func(int)) {
	if err := Execute(Version, Build, ProgramName, args[1:]); err != nil {
		exit(1)
	}
}

// Execute is the entry point for the CLI, extracted for testing
func Execute(version, build, programName string, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := app.NewRootCommand(app.DefaultRunParams(), programName, version)
	rootCmd.SetVersionTemplate(`{{.Version}} (` + build + `)
`)
	rootCmd.SetArgs(args)

	return rootCmd.ExecuteContext(ctx)
}
