package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tribalgis/claimgis/internal/config"
	"github.com/tribalgis/claimgis/internal/db"
	"github.com/tribalgis/claimgis/internal/geocode"
	"github.com/tribalgis/claimgis/internal/mcp"
	"github.com/tribalgis/claimgis/internal/ner"
	"github.com/tribalgis/claimgis/internal/ocr"
	"github.com/tribalgis/claimgis/internal/pipeline"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"serve": true, "extract": true, "save": true,
	"markers": true, "claims": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
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
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   ___ _      _        ___ ___ ___
  / __| |__ _(_)_ __  / __|_ _/ __|
 | (__| / _' | | '  \| (_ || |\__ \
  \___|_\__,_|_|_|_|_|\___|___|___/

  Land claim digitization toolkit

  Usage: claimgis <command> [options]
         claimgis --help

  MCP server mode requires piped input.`)
}

// buildPipeline wires the OCR engine, entity extractor, and geocoder
// from config. Requires an OpenAI API key for extraction.
func buildPipeline(cfg *config.Config) (*pipeline.Pipeline, error) {
	engine := ocr.NewTesseractEngine(cfg.OCRLanguages)

	extractor, err := ner.NewOpenAIExtractor(ner.Config{
		APIKey:  cfg.APIKey(),
		Model:   cfg.NERModel,
		BaseURL: cfg.NERBaseURL,
	})
	if err != nil {
		return nil, err
	}

	limiter := geocode.NewLimiter(time.Duration(cfg.GeocodeMinIntervalMS) * time.Millisecond)
	geocoder := geocode.NewClient(limiter, geocode.Options{
		BaseURL:    cfg.GeocodeBaseURL,
		UserAgent:  cfg.GeocodeUserAgent,
		MaxRetries: cfg.GeocodeMaxRetries,
		Backoff:    time.Duration(cfg.GeocodeBackoffMS) * time.Millisecond,
		CacheTTL:   time.Duration(cfg.GeocodeCacheTTLMinutes) * time.Minute,
	})

	return pipeline.New(cfg.UploadDir, engine, extractor, geocoder, cfg.GeocodeLabels), nil
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil, nil)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}

	baseDir := filepath.Join(homeDir, ".claimgis")

	database, err := db.Init(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to initialize database: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	cfg, err := config.Load(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	db.ConfigurePool(database, cfg)

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(database, cfg)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'claimgis --help' for usage.\n")
		os.Exit(1)
	}

	// MCP server mode (default)
	pipe, err := buildPipeline(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := mcp.Run(database, cfg, pipe, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
