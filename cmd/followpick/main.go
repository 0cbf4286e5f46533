package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/hpungsan/followpick/internal/config"
	"github.com/hpungsan/followpick/internal/db"
	"github.com/hpungsan/followpick/internal/mcp"
	"github.com/hpungsan/followpick/internal/provider"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"pick": true, "orientation": true, "capture": true,
	"snapshots": true, "show": true, "subjects": true,
	"watch": true, "serve": true,
	"help": true,
}

// longRunning commands log JSON instead of text.
var longRunning = map[string]bool{"serve": true, "watch": true}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode(args []string) bool {
	if len(args) < 2 {
		return false // No args → MCP server
	}
	arg := args[1]
	// Known subcommand → CLI
	if cliCommands[arg] {
		return true
	}
	// --help or --version → CLI
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false // Default → MCP server
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion(args []string) bool {
	if len(args) < 2 {
		return false
	}
	arg := args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// extractHome removes a leading --home flag from args. The base directory
// must be known before the CLI app is built.
func extractHome(args []string) (home string, rest []string, err error) {
	if len(args) < 2 {
		return "", args, nil
	}
	arg := args[1]
	if v, ok := strings.CutPrefix(arg, "--home="); ok {
		if v == "" {
			return "", nil, fmt.Errorf("--home requires a directory")
		}
		return v, append([]string{args[0]}, args[2:]...), nil
	}
	if arg == "--home" {
		if len(args) < 3 || args[2] == "" {
			return "", nil, fmt.Errorf("--home requires a directory")
		}
		return args[2], append([]string{args[0]}, args[3:]...), nil
	}
	return "", args, nil
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
  followpick
  Random winner picker for follower giveaways

  Usage: followpick <command> [options]
         followpick --help

  MCP server mode requires piped input.`)
}

// setupLogging installs the default slog logger on stderr. stdout carries
// command output or the MCP protocol.
func setupLogging(level string, json bool) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	home, args, err := extractHome(os.Args)
	if err != nil {
		fatal("%v", err)
	}

	// No args + interactive terminal → show banner and exit
	if len(args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion(args) {
		app := newCLIApp(&deps{})
		if err := app.Run(args); err != nil {
			fatal("%v", err)
		}
		return
	}

	baseDir := home
	if baseDir == "" {
		if baseDir, err = config.BaseDir(); err != nil {
			fatal("could not determine home directory: %v", err)
		}
	}

	cfg, err := config.Load(baseDir)
	if err != nil {
		fatal("failed to load config: %v", err)
	}

	cliMode := isCLIMode(args)
	setupLogging(cfg.LogLevel, !cliMode || longRunning[args[1]])

	database, err := db.Init(baseDir)
	if err != nil {
		fatal("failed to initialize database: %v", err)
	}
	defer database.Close()
	db.ConfigurePool(database, cfg)

	d := &deps{store: db.NewSnapshotStore(database), cfg: cfg}
	// A missing credential only fails commands that call the provider.
	if d.sourceErr = cfg.Validate(); d.sourceErr == nil {
		d.source = provider.New(cfg)
	}

	// CLI mode: known subcommand
	if cliMode {
		app := newCLIApp(d)
		if err := app.Run(args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			database.Close()
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", args[1])
		fmt.Fprintf(os.Stderr, "Run 'followpick --help' for usage.\n")
		database.Close()
		os.Exit(1)
	}

	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		slog.Warn("ignoring unknown disabled_tools", "tools", unknown)
	}

	// MCP server mode (default)
	if err := mcp.Run(d.store, d.source, cfg, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		database.Close()
		os.Exit(1)
	}
}
