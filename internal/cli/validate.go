package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rvachev/trustgate/internal/audit"
	"github.com/rvachev/trustgate/internal/errclass"
	"github.com/rvachev/trustgate/internal/pipeline"
)

var (
	validatePolicy   string
	validateJail     string
	validateFormat   string
	validateAuditLog string
)

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVar(&validatePolicy, "policy", "", "Path to governance policy YAML (optional)")
	validateCmd.Flags().StringVar(&validateJail, "jail", "", "Sandbox root for $ref resolution (default: manifest directory)")
	validateCmd.Flags().StringVarP(&validateFormat, "format", "f", "text", "Output format (text|json)")
	validateCmd.Flags().StringVar(&validateAuditLog, "audit-log", "", "Append the verdict to this JSONL audit log")
}

var validateCmd = &cobra.Command{
	Use:   "validate <manifest>",
	Short: "Run the full trust pipeline on a manifest",
	Long: "Resolves the manifest's $ref graph inside the jail, validates its\n" +
		"schema, evaluates governance policy, and verifies the declared\n" +
		"source-tree digest.\n\n" +
		"Exit codes: 0 pass, 1 policy violations, 2 schema, 3 security,\n" +
		"4 integrity, 5 evaluator malfunction.",
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	res, err := pipeline.Run(pipeline.Config{
		ManifestPath: args[0],
		Jail:         validateJail,
		PolicyPath:   validatePolicy,
	})

	if validateAuditLog != "" {
		if aerr := appendVerdict(validateAuditLog, args[0], res, err); aerr != nil {
			fmt.Fprintf(os.Stderr, "WARNING: audit append failed: %v\n", aerr)
		}
	}

	switch validateFormat {
	case "json":
		out, merr := json.MarshalIndent(res, "", "  ")
		if merr != nil {
			return merr
		}
		fmt.Println(string(out))
	default:
		fmt.Println(pipeline.Summary(res))
		if res.Governance != nil {
			for _, v := range res.Governance.Violations {
				fmt.Printf("  %s: %s\n", v.Rule, v.Message)
			}
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		}
	}

	if err != nil {
		os.Exit(exitCode(err))
	}
	if !res.Passed {
		os.Exit(1)
	}
	return nil
}

// exitCode maps a fatal pipeline error onto the command's exit code.
func exitCode(err error) int {
	switch {
	case errors.Is(err, errclass.ErrSchema):
		return 2
	case errors.Is(err, errclass.ErrSecurity):
		return 3
	case errors.Is(err, errclass.ErrIntegrity):
		return 4
	case errors.Is(err, errclass.ErrEvaluator):
		return 5
	}
	return 1
}

func appendVerdict(logPath, manifestPath string, res *pipeline.Result, runErr error) error {
	rec, err := audit.OpenRecorder(logPath, "")
	if err != nil {
		return err
	}
	defer rec.Close()

	outcome := "pass"
	if runErr != nil || !res.Passed {
		outcome = "fail"
	}
	entry := audit.Record{
		Actor:      "trustgate",
		Action:     "validate",
		Outcome:    outcome,
		Extensions: map[string]any{"manifest": manifestPath},
	}
	if runErr != nil {
		entry.Safety = map[string]string{"error": runErr.Error()}
	}
	_, err = rec.Append(entry)
	return err
}
