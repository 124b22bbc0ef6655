package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/veeo/driver-dispatch/config"
	"github.com/veeo/driver-dispatch/core/dispatch/audit"
	"github.com/veeo/driver-dispatch/pkg/export"
)

var (
	auditFormat       string
	auditSince        string
	auditFailuresOnly bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit log commands",
}

var auditExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export dispatch audit records to stdout",
	RunE:  runAuditExport,
}

func init() {
	auditExportCmd.Flags().StringVar(&auditFormat, "format", "csv", "output format: csv or json")
	auditExportCmd.Flags().StringVar(&auditSince, "since", "", "only records at or after this RFC3339 time")
	auditExportCmd.Flags().BoolVar(&auditFailuresOnly, "failures-only", false, "only failed searches")
	auditCmd.AddCommand(auditExportCmd)
	rootCmd.AddCommand(auditCmd)
}

func runAuditExport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Audit.Backend != "jsonl" {
		return fmt.Errorf("audit backend %q has nothing to export", cfg.Audit.Backend)
	}
	store, err := audit.NewJSONLStore(cfg.Audit.Path)
	if err != nil {
		return fmt.Errorf("open audit store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "error while closing audit store: %v\n", err)
		}
	}()

	q := audit.Query{FailuresOnly: auditFailuresOnly}
	if auditSince != "" {
		start, err := time.Parse(time.RFC3339, auditSince)
		if err != nil {
			return fmt.Errorf("parse --since: %w", err)
		}
		q.Start = start
	}
	records, err := store.Query(context.Background(), q)
	if err != nil {
		return err
	}

	switch auditFormat {
	case "csv":
		return export.WriteCSV(os.Stdout, records)
	case "json":
		return export.WriteJSON(os.Stdout, records)
	default:
		return fmt.Errorf("unsupported format %q", auditFormat)
	}
}
