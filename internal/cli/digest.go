package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rvachev/trustgate/internal/digest"
)

var digestExpected string

func init() {
	rootCmd.AddCommand(digestCmd)
	digestCmd.Flags().StringVar(&digestExpected, "verify", "", "Expected digest to compare against")
}

var digestCmd = &cobra.Command{
	Use:   "digest <path>",
	Short: "Compute the content digest of a source tree",
	Long: "Walks the tree in sorted relative-path order, skipping VCS and tooling\n" +
		"directories, and folds every file's path and content into one SHA-256.\n" +
		"Any symlink in the tree is a security violation.\n\n" +
		"With --verify, compares against an expected digest and exits 1 on mismatch.",
	Args: cobra.ExactArgs(1),
	RunE: runDigest,
}

func runDigest(cmd *cobra.Command, args []string) error {
	if digestExpected != "" {
		if err := digest.Verify(digestExpected, args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "FAILED: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("OK")
		return nil
	}

	d, err := digest.Tree(args[0])
	if err != nil {
		return err
	}
	fmt.Println(d)
	return nil
}
