package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/deepmd/internal/config"
	"github.com/dgallion1/deepmd/internal/doctree"
	"github.com/dgallion1/deepmd/internal/exporter"
	"github.com/dgallion1/deepmd/internal/live"
	"github.com/dgallion1/deepmd/internal/sink"
	"github.com/dgallion1/deepmd/internal/status"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	exportOut     string
	exportBaseURL string
	exportStdout  bool
)

var exportCmd = &cobra.Command{
	Use:   "export <snapshot.html>",
	Short: "Export a saved response page to Markdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		log, closer := cfg.NewLogger()
		defer closer.Close()

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		root, err := doctree.Load(f)
		f.Close()
		if err != nil {
			return err
		}

		baseURL := exportBaseURL
		if baseURL == "" {
			baseURL = cfg.BaseURL
		}
		doc := &live.Document{
			Root:    root,
			Host:    live.NewSnapshotHost(root, cfg.HostLatency),
			BaseURL: baseURL,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		exp := exporter.New(cfg.ExporterOptions(), log)
		notify := consoleNotifier(cmd.ErrOrStderr())

		if exportStdout {
			res, err := exp.Run(ctx, doc, notify)
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), res.Markdown)
			return err
		}

		dir := exportOut
		if dir == "" {
			dir = cfg.OutputDir
		}
		if dir == "" {
			dir = "."
		}
		res, err := exp.Export(ctx, doc, notify, sink.Dir{Path: dir})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), color.GreenString("Saved %s", filepath.Join(dir, res.Filename)))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output directory (default OUTPUT_DIR or .)")
	exportCmd.Flags().StringVar(&exportBaseURL, "base-url", "", "Base URL for relative links")
	exportCmd.Flags().BoolVar(&exportStdout, "stdout", false, "Write Markdown to stdout instead of a file")
}

// consoleNotifier prints status messages, red for errors and green for
// completion.
func consoleNotifier(w io.Writer) status.Notifier {
	return status.Func(func(msg string, _ time.Duration) {
		c := color.New(color.FgCyan)
		switch {
		case strings.HasPrefix(msg, "Error:"):
			c = color.New(color.FgRed)
		case strings.HasPrefix(msg, "Export complete"):
			c = color.New(color.FgGreen)
		}
		c.Fprintln(w, msg)
	})
}
