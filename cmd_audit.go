package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"chatwidget/audit"
)

var auditCmd = &cobra.Command{
	Use:   "audit <session-id>",
	Short: "List recorded request outcomes for a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runAudit,
}

func runAudit(cmd *cobra.Command, args []string) error {
	if cfg.Audit.Path == "" {
		return errors.New("auditing is disabled (audit.path is empty)")
	}
	store, err := audit.Open(cfg.Audit.Path, logger.Named("audit"))
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(context.Background(), args[0])
	if err != nil {
		return err
	}
	printAudit(cmd.OutOrStdout(), entries)
	return nil
}

func printAudit(w io.Writer, entries []audit.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "no entries")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s  %-18s status=%-3d in=%-5d out=%-5d %6dms  %s\n",
			e.Timestamp.Local().Format(time.DateTime), e.Outcome, e.StatusCode,
			e.InputTokens, e.OutputTokens, e.Duration.Milliseconds(), e.Model)
	}
}
