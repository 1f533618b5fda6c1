package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/tagvault"
	"github.com/aretw0/tagvault/internal/platform"
)

var (
	verbose  bool
	gitless  bool
	dataDir  string
	autoInit bool
	asJSON   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tagvault",
	Short: "Annotated notes with a self-maintaining tag index",
	Long: `tagvault stores short notes in plain JSON files and keeps an index of the
#projects, @persons, >events and +generic tags they mention.

A leading run of '!' marks a task (! low, !! mid, !!! high) and may be
followed by a due date: today, tomorrow, week, MM-DD, YY-MM-DD or YYYY-MM-DD.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&gitless, "gitless", false, "Do not record changes in git")
	rootCmd.PersistentFlags().StringVarP(&dataDir, "dir", "d", "", "Vault directory (default: nearest vault root, or the working directory)")
	rootCmd.PersistentFlags().BoolVar(&autoInit, "init", false, "Create the vault if it does not exist")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "Print results as JSON")
}

// openVault resolves the vault directory and opens it with the settings of
// its tagvault.yaml, if any. Command-line flags win over the file.
func openVault() *tagvault.Vault {
	dir := dataDir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			fatal("Failed to get CWD", err)
		}
		dir = cwd
		if root, err := platform.FindRoot(cwd); err == nil {
			dir = root
		}
	}

	cfg, err := platform.LoadConfig(dir)
	if err != nil {
		fatal("Failed to read configuration", err)
	}
	if cfg.LogLevel != "" && !verbose {
		lvl, _ := cfg.Level()
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
	}

	opts := append(cfg.Options(),
		platform.WithLogger(slog.Default()),
		platform.WithAutoInit(autoInit),
		// The CLI always operates on the directory it is given.
		platform.WithDevSafety(false),
	)
	if gitless {
		opts = append(opts, platform.WithVersioning(false))
	}

	v, err := platform.Open(cfg.Dir(), opts...)
	if err != nil {
		fatal("Failed to open vault", err)
	}
	return v
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		fatal("Failed to encode output", err)
	}
}

func printNotes(notes []tagvault.Note) {
	if asJSON {
		printJSON(notes)
		return
	}
	for _, n := range notes {
		printNote(n)
	}
}

func printNote(n tagvault.Note) {
	line := fmt.Sprintf("%s  %s", n.ID, n.Date)
	if n.Task != "" {
		line += fmt.Sprintf("  [%s", n.Task)
		if n.DueDate != "" {
			line += " due " + n.DueDate
		}
		line += "]"
	}
	fmt.Printf("%s  %s\n", line, n.Text)
}
