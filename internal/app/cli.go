package app

import (
	"github.com/sha1n/yari-search/internal/config"
	"github.com/spf13/pflag"
)

// RegisterFlags registers the global flags on the given FlagSet
func RegisterFlags(flags *pflag.FlagSet) {
	flags.StringSliceP("hosts", "H", nil, "Index root directories, primary first (comma-separated)")
	flags.StringP("index", "i", "", "Index name")
	flags.String("state-dir", "", "Directory for index locks, run history and file state")
	flags.StringP("log-level", "l", "", "Log level: debug, info, warn or error")
}

// registerIndexFlags registers the flags of the index command
func registerIndexFlags(flags *pflag.FlagSet) {
	flags.BoolP("update", "u", false, "Upsert into the existing index instead of recreating it")
	flags.Bool("changed-only", false, "With --update, skip files unchanged since they were last indexed")
	flags.Bool("strip-html", true, "Reduce body markup to plain text")
}

// registerSearchFlags registers the flags of the search command
func registerSearchFlags(flags *pflag.FlagSet) {
	flags.Bool("show-highlights", false, "Show highlighted title and body excerpts")
	flags.String("locale", "", "Only return pages of this locale, e.g. en-US")
	flags.IntP("size", "n", 0, "Number of results (default from search.size)")
	_ = flags.SetAnnotation("size", config.SettingAnnotation, []string{"search.size"})
	flags.Int("from", 0, "Number of results to skip")
	flags.Bool("archived", false, "Include archived pages")
	flags.Bool("debug", false, "Print the engine requests before running them")
}

// registerCompleteFlags registers the flags of the complete command
func registerCompleteFlags(flags *pflag.FlagSet) {
	flags.IntP("size", "n", 5, "Number of completions")
}
