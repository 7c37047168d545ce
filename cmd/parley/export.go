package main

import (
	"fmt"
	"os"
	"time"

	"github.com/parleyhq/parley/internal/export"
	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var (
		configPath string
		format     string
		outPath    string
	)

	cmd := &cobra.Command{
		Use:   "export <session-id>",
		Short: "Export a saved session to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, configPath, args[0], format, outPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "parley.yaml", "path to Parley config file")
	cmd.Flags().StringVarP(&format, "format", "f", export.FormatText, "output format (text or json)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (defaults to chat-export-<date>)")
	return cmd
}

func runExport(cmd *cobra.Command, configPath, id, format, outPath string) error {
	browser, err := browserFromConfig(configPath)
	if err != nil {
		return err
	}

	sess, ok := browser.Get(id)
	if !ok {
		return fmt.Errorf("parley: session %s not found", id)
	}

	now := time.Now()
	out, err := export.Render(format, sess.Messages, now)
	if err != nil {
		return err
	}

	if outPath == "" {
		outPath = export.Filename(format, now)
	}
	if err := os.WriteFile(outPath, []byte(out), 0644); err != nil {
		return fmt.Errorf("parley: write export: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d message(s) to %s\n", len(sess.Messages), outPath)
	return nil
}
