package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rvachev/trustgate/internal/refload"
)

var (
	resolveJail      string
	resolveFormat    string
	resolveNoResolve bool
)

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().StringVar(&resolveJail, "jail", "", "Sandbox root for $ref resolution (default: manifest directory)")
	resolveCmd.Flags().StringVarP(&resolveFormat, "format", "f", "yaml", "Output format (yaml|json)")
	resolveCmd.Flags().BoolVar(&resolveNoResolve, "no-resolve", false, "Leave $ref nodes unexpanded")
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <manifest>",
	Short: "Resolve a manifest's $ref graph and print the composed document",
	Long: "Loads the manifest and expands every $ref inside the jail, rejecting\n" +
		"escapes, symlinks, and circular references, then prints the composed\n" +
		"document.",
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func runResolve(cmd *cobra.Command, args []string) error {
	jail := resolveJail
	if jail == "" {
		jail = filepath.Dir(args[0])
	}

	loader, err := refload.New(refload.Config{Jail: jail, NoResolve: resolveNoResolve})
	if err != nil {
		return err
	}
	doc, err := loader.Load(args[0])
	if err != nil {
		return err
	}

	switch resolveFormat {
	case "json":
		out, merr := json.MarshalIndent(doc, "", "  ")
		if merr != nil {
			return merr
		}
		fmt.Println(string(out))
	default:
		out, merr := yaml.Marshal(doc)
		if merr != nil {
			return merr
		}
		fmt.Print(string(out))
	}
	return nil
}
