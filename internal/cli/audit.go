package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rvachev/trustgate/internal/audit"
)

var (
	recordLog     string
	recordActor   string
	recordAction  string
	recordOutcome string
	recordTrace   string
	recordCanon   string

	exportDB  string
	exportOut string
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditRecordCmd)
	auditCmd.AddCommand(auditExportCmd)

	auditRecordCmd.Flags().StringVar(&recordLog, "log", "", "Path to the JSONL audit log (required)")
	auditRecordCmd.Flags().StringVar(&recordActor, "actor", "", "Acting identity (required)")
	auditRecordCmd.Flags().StringVar(&recordAction, "action", "", "Action name (required)")
	auditRecordCmd.Flags().StringVar(&recordOutcome, "outcome", "ok", "Action outcome")
	auditRecordCmd.Flags().StringVar(&recordTrace, "trace-id", "", "Trace identifier")
	auditRecordCmd.Flags().StringVar(&recordCanon, "canon", "", "Canonicalization mode (baseline|extended)")
	auditRecordCmd.MarkFlagRequired("log")
	auditRecordCmd.MarkFlagRequired("actor")
	auditRecordCmd.MarkFlagRequired("action")

	auditExportCmd.Flags().StringVar(&exportDB, "db", "", "Path to the sqlite archive (required)")
	auditExportCmd.Flags().StringVar(&exportOut, "out", "", "Write the archive back out as JSONL to this path")
	auditExportCmd.MarkFlagRequired("db")
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit chain operations",
	Long:  "Commands for recording, verifying, and archiving the hash-linked audit chain.",
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify <path>",
	Short: "Verify the hash chain of a JSONL audit log",
	Long: "Walks the JSONL audit log and validates that every record's integrity\n" +
		"hash is self-consistent and that every cited parent hash matches an\n" +
		"already-verified record. Exits 0 if valid, 1 if tampered.",
	Args: cobra.ExactArgs(1),
	RunE: runAuditVerify,
}

var auditRecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Append a sealed record to an audit log",
	Long: "Stamps identity, timestamp, and parent linkage onto a new record,\n" +
		"seals it, and appends it to the JSONL log. Prints the sealed record.",
	RunE: runAuditRecord,
}

var auditExportCmd = &cobra.Command{
	Use:   "export <log>",
	Short: "Archive a JSONL audit log into sqlite",
	Long: "Imports every record of the JSONL log into a sqlite archive keyed by\n" +
		"integrity hash, then re-verifies the chain straight from the archive.\n" +
		"With --out, also writes the archive contents back out as JSONL.",
	Args: cobra.ExactArgs(1),
	RunE: runAuditExport,
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	result := audit.VerifyLog(args[0])
	if result.Valid {
		fmt.Printf("OK: %d records verified\n", result.Records)
		return nil
	}
	fmt.Fprintf(os.Stderr, "FAILED at record %d: %s\n", result.ErrorIndex, result.Error)
	os.Exit(1)
	return nil
}

func runAuditRecord(cmd *cobra.Command, args []string) error {
	rec, err := audit.OpenRecorder(recordLog, recordCanon)
	if err != nil {
		return err
	}
	defer rec.Close()

	sealed, err := rec.Append(audit.Record{
		TraceID: recordTrace,
		Actor:   recordActor,
		Action:  recordAction,
		Outcome: recordOutcome,
	})
	if err != nil {
		return err
	}

	out, _ := json.MarshalIndent(sealed, "", "  ")
	fmt.Println(string(out))
	return nil
}

func runAuditExport(cmd *cobra.Command, args []string) error {
	records, err := audit.ReadLog(args[0])
	if err != nil {
		return err
	}

	store, err := audit.OpenStore(exportDB)
	if err != nil {
		return err
	}
	defer store.Close()

	for _, r := range records {
		if err := store.Append(r); err != nil {
			return fmt.Errorf("archive record %s: %w", r.ID, err)
		}
	}

	result := store.Verify()
	if !result.Valid {
		fmt.Fprintf(os.Stderr, "FAILED at record %d: %s\n", result.ErrorIndex, result.Error)
		os.Exit(1)
	}
	fmt.Printf("OK: %d records archived and verified\n", result.Records)

	if exportOut != "" {
		archived, err := store.Load()
		if err != nil {
			return err
		}
		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("create export file: %w", err)
		}
		defer f.Close()
		enc := json.NewEncoder(f)
		for _, r := range archived {
			if err := enc.Encode(r); err != nil {
				return fmt.Errorf("write export file: %w", err)
			}
		}
		fmt.Printf("Wrote %s\n", exportOut)
	}
	return nil
}
