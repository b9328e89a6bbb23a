package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/tribalgis/claimgis/internal/claim"
	"github.com/tribalgis/claimgis/internal/config"
	"github.com/tribalgis/claimgis/internal/errors"
	"github.com/tribalgis/claimgis/internal/ops"
	"github.com/tribalgis/claimgis/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config) *cli.App {
	app := &cli.App{
		Name:    "claimgis",
		Usage:   "Land claim digitization toolkit",
		Version: Version,
		Commands: []*cli.Command{
			serveCmd(db, cfg),
			extractCmd(cfg),
			saveCmd(db),
			markersCmd(db),
			claimsCmd(db),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// serveCmd creates the serve command.
func serveCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the web UI and JSON API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Aliases: []string{"b"}, Value: "127.0.0.1", Usage: "Bind address"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 5000, Usage: "Listen port"},
		},
		Action: func(c *cli.Context) error {
			pipe, err := buildPipeline(cfg)
			if err != nil {
				return outputError(err)
			}

			srv := web.NewServer(db, cfg, pipe, Version, c.String("bind"), c.Int("port"))
			if err := web.Run(srv); err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// extractCmd creates the extract command.
func extractCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     "Run OCR, entity extraction, and geocoding on an image",
		ArgsUsage: "<image>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("image path is required"))
			}
			path := c.Args().First()

			f, err := os.Open(path)
			if err != nil {
				return outputError(errors.NewInvalidRequest(fmt.Sprintf("cannot open %s", path)))
			}
			defer f.Close()

			pipe, err := buildPipeline(cfg)
			if err != nil {
				return outputError(err)
			}

			result, err := pipe.Run(context.Background(), filepath.Base(path), f)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(result)
		},
	}
}

// saveCmd creates the save command.
func saveCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "save",
		Usage: "Persist an extraction result (reads extract JSON from stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "filename", Aliases: []string{"f"}, Usage: "Original upload filename"},
		},
		Action: func(c *cli.Context) error {
			// Require stdin input
			if !stdinHasData() {
				return outputError(errors.NewInvalidRequest("extraction JSON must be piped via stdin"))
			}

			raw, err := readStdin()
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			if raw == "" {
				return outputError(errors.NewInvalidRequest("extraction JSON is required"))
			}

			var extraction struct {
				Text     string         `json:"text"`
				Entities []claim.Entity `json:"entities"`
				Filename string         `json:"filename"`
			}
			if err := json.Unmarshal([]byte(raw), &extraction); err != nil {
				return outputError(errors.NewInvalidRequest("invalid extraction JSON"))
			}

			input := ops.SaveInput{
				Text:     extraction.Text,
				Entities: extraction.Entities,
				Filename: extraction.Filename,
			}
			if name := c.String("filename"); name != "" {
				input.Filename = name
			}

			output, err := ops.Save(c.Context, db, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// markersCmd creates the markers command.
func markersCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "markers",
		Usage: "List all saved geocoded points, newest-first",
		Action: func(c *cli.Context) error {
			points, err := ops.Markers(c.Context, db)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(points)
		},
	}
}

// claimsCmd creates the claims command.
func claimsCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "claims",
		Usage:     "Dump all claims and points, or one claim by id",
		ArgsUsage: "[id]",
		Action: func(c *cli.Context) error {
			if c.NArg() > 0 {
				output, err := ops.Fetch(c.Context, db, c.Args().First())
				if err != nil {
					return outputError(err)
				}
				return outputJSON(output)
			}

			output, err := ops.Dump(c.Context, db)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// outputJSON prints data as indented JSON to stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if cErr, ok := err.(*errors.ClaimError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", cErr.Code, cErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
