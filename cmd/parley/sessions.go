package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/parleyhq/parley/internal/config"
	"github.com/parleyhq/parley/internal/session"
	"github.com/parleyhq/parley/internal/store"
	"github.com/spf13/cobra"
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Saved session commands",
	}

	cmd.AddCommand(newSessionsListCmd())
	cmd.AddCommand(newSessionsShowCmd())
	cmd.AddCommand(newSessionsRenameCmd())
	cmd.AddCommand(newSessionsDeleteCmd())
	return cmd
}

// browserFromConfig opens the store at the configured path and wraps it
// in a read-path browser.
func browserFromConfig(configPath string) (*session.Browser, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	st := store.Open(cfg.DatabasePath)
	if !st.Available() {
		return nil, fmt.Errorf("parley: cannot open database at %s", cfg.DatabasePath)
	}
	return session.NewBrowser(st), nil
}

func newSessionsListCmd() *cobra.Command {
	var (
		configPath string
		filter     string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsList(cmd, configPath, filter)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "parley.yaml", "path to Parley config file")
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "case-insensitive title filter")
	return cmd
}

func runSessionsList(cmd *cobra.Command, configPath, filter string) error {
	browser, err := browserFromConfig(configPath)
	if err != nil {
		return err
	}

	sessions := browser.List(filter)
	if len(sessions) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No saved sessions.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tMESSAGES\tUPDATED")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			s.ID, s.Title, len(s.Messages), s.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func newSessionsShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a saved session's messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsShow(cmd, configPath, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "parley.yaml", "path to Parley config file")
	return cmd
}

func runSessionsShow(cmd *cobra.Command, configPath, id string) error {
	browser, err := browserFromConfig(configPath)
	if err != nil {
		return err
	}

	sess, ok := browser.Get(id)
	if !ok {
		return fmt.Errorf("parley: session %s not found", id)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Session: %s\n", sess.ID)
	fmt.Fprintf(out, "Title:   %s\n", sess.Title)
	fmt.Fprintf(out, "Created: %s\n", sess.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(out, "Updated: %s\n\n", sess.UpdatedAt.Format("2006-01-02 15:04"))
	for _, m := range sess.Messages {
		fmt.Fprintf(out, "[%s] %s: %s\n", m.Timestamp.Format("15:04"), m.Role, m.Content)
	}
	return nil
}

func newSessionsRenameCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "rename <session-id> <title>",
		Short: "Rename a saved session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			browser, err := browserFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := browser.Rename(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %q\n", args[0], args[1])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "parley.yaml", "path to Parley config file")
	return cmd
}

func newSessionsDeleteCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a saved session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			browser, err := browserFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := browser.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "parley.yaml", "path to Parley config file")
	return cmd
}
