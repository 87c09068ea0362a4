package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rvachev/trustgate/internal/pipeline"
	"github.com/rvachev/trustgate/internal/watch"
)

var (
	watchPolicy string
	watchJail   string
)

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchPolicy, "policy", "", "Path to governance policy YAML (optional)")
	watchCmd.Flags().StringVar(&watchJail, "jail", "", "Sandbox root for $ref resolution (default: manifest directory)")
}

var watchCmd = &cobra.Command{
	Use:   "watch <manifest>",
	Short: "Re-validate a manifest whenever it changes",
	Long: "Runs the full trust pipeline, then watches the jail and policy for\n" +
		"changes and re-runs it on every edit. One verdict line per run.",
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	w := watch.New(pipeline.Config{
		ManifestPath: args[0],
		Jail:         watchJail,
		PolicyPath:   watchPolicy,
	}, func(res *pipeline.Result, err error) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
			return
		}
		fmt.Println(pipeline.Summary(res))
		if res.Governance != nil {
			for _, v := range res.Governance.Violations {
				fmt.Printf("  %s: %s\n", v.Rule, v.Message)
			}
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nStopping watch...")
		cancel()
	}()

	fmt.Fprintf(os.Stderr, "Watching %s\n", args[0])
	return w.Run(ctx)
}
