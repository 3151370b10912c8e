package cmd

import (
	"fmt"
	"io"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/Kisii856/task-automation-platform/api/schemas"
	"github.com/Kisii856/task-automation-platform/internal/config"
	"github.com/Kisii856/task-automation-platform/internal/observability"
	"github.com/Kisii856/task-automation-platform/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newDecomposeCmd creates the `decompose` command, which prints the steps a
// task would run without touching a browser.
func newDecomposeCmd() *cobra.Command {
	var format, structured string

	decomposeCmd := &cobra.Command{
		Use:   "decompose [task...]",
		Short: "Print the workflow steps for a task",
		Example: `  taskflow decompose "go to https://example.com and click the login button"
  taskflow decompose --structured llm-output.json --format yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			task := strings.TrimSpace(strings.Join(args, " "))
			if task == "" && structured == "" {
				return fmt.Errorf("a task or --structured file is required")
			}
			outFormat, err := schemas.ParseFormat(format)
			if err != nil {
				return err
			}
			path, err := config.ExpandPath(structured)
			if err != nil {
				return err
			}

			c := &components{cfg: cfg, logger: observability.GetLogger()}
			steps, err := c.decomposer(path).Decompose(ctx, task)
			if err != nil {
				return err
			}
			if len(steps) == 0 {
				return store.ErrNoSteps
			}
			return schemas.EncodeSteps(cmd.OutOrStdout(), steps, outFormat)
		},
	}

	decomposeCmd.Flags().StringVarP(&format, "format", "f", "json", "output format (json or yaml)")
	decomposeCmd.Flags().StringVar(&structured, "structured", "", "parse a structured step list (e.g. language model output) instead of free text")
	return decomposeCmd
}
