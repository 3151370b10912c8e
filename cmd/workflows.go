package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Kisii856/task-automation-platform/api/schemas"
	"github.com/Kisii856/task-automation-platform/internal/config"
	"github.com/Kisii856/task-automation-platform/internal/observability"
)

// newWorkflowsCmd groups the commands that manage stored workflows.
func newWorkflowsCmd() *cobra.Command {
	workflowsCmd := &cobra.Command{
		Use:     "workflows",
		Aliases: []string{"wf"},
		Short:   "Create and inspect stored workflows",
	}
	workflowsCmd.PersistentFlags().StringP("output", "o", outputText, "output format (text or json)")

	workflowsCmd.AddCommand(
		newWorkflowsCreateCmd(),
		newWorkflowsListCmd(),
		newWorkflowsShowCmd(),
		newWorkflowsRunsCmd(),
	)
	return workflowsCmd
}

// withStore runs fn against the configured store and closes it afterwards.
func withStore(cmd *cobra.Command, fn func(c *components, format string) error) error {
	ctx := cmd.Context()
	cfg, err := getConfigFromContext(ctx)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("output")
	if format != outputText && format != outputJSON {
		return fmt.Errorf("unsupported output %q (expected text or json)", format)
	}

	c, err := initializeComponents(ctx, cfg, observability.GetLogger(), false)
	if err != nil {
		return err
	}
	defer c.Shutdown()
	return fn(c, format)
}

func newWorkflowsCreateCmd() *cobra.Command {
	var structured string

	createCmd := &cobra.Command{
		Use:   "create [task...]",
		Short: "Decompose a task and store the resulting workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			task := strings.TrimSpace(strings.Join(args, " "))
			if task == "" && structured == "" {
				return fmt.Errorf("a task or --structured file is required")
			}
			path, err := config.ExpandPath(structured)
			if err != nil {
				return err
			}
			return withStore(cmd, func(c *components, format string) error {
				ctx := cmd.Context()
				steps, err := c.decomposer(path).Decompose(ctx, task)
				if err != nil {
					return err
				}
				if task == "" {
					task = "structured:" + path
				}
				rec, err := c.store.CreateWorkflow(ctx, task, steps)
				if err != nil {
					return err
				}
				if format == outputJSON {
					return printJSON(cmd.OutOrStdout(), rec)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created workflow %s (%d steps)\n", rec.ID, len(rec.Steps))
				return nil
			})
		},
	}
	createCmd.Flags().StringVar(&structured, "structured", "", "build the workflow from a structured step file")
	return createCmd
}

func newWorkflowsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored workflows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(c *components, format string) error {
				records, err := c.store.ListWorkflows(cmd.Context())
				if err != nil {
					return err
				}
				if format == outputJSON {
					if records == nil {
						records = []schemas.WorkflowRecord{}
					}
					return printJSON(cmd.OutOrStdout(), records)
				}
				printWorkflowTable(cmd.OutOrStdout(), records)
				return nil
			})
		},
	}
}

func newWorkflowsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a stored workflow's steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(c *components, format string) error {
				rec, err := c.store.GetWorkflow(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if format == outputJSON {
					return printJSON(cmd.OutOrStdout(), rec)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", rec.ID, rec.Task)
				return schemas.EncodeSteps(cmd.OutOrStdout(), rec.Steps, schemas.FormatYAML)
			})
		},
	}
}

func newWorkflowsRunsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "runs <id>",
		Short: "List the recorded runs of a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(c *components, format string) error {
				runs, err := c.store.ListRuns(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if format == outputJSON {
					if runs == nil {
						runs = []schemas.RunRecord{}
					}
					return printJSON(cmd.OutOrStdout(), runs)
				}
				printRunTable(cmd.OutOrStdout(), runs)
				return nil
			})
		},
	}
}

func printWorkflowTable(w io.Writer, records []schemas.WorkflowRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "no workflows")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTEPS\tCREATED\tTASK")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", r.ID, len(r.Steps), r.CreatedAt.Format("2006-01-02 15:04:05"), r.Task)
	}
	tw.Flush()
}

func printRunTable(w io.Writer, runs []schemas.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tDURATION\tERROR")
	for _, r := range runs {
		errText := r.ErrorCode
		if r.Error != "" {
			errText = strings.TrimSpace(r.ErrorCode + " " + r.Error)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.Status, r.Duration().Round(time.Millisecond), errText)
	}
	tw.Flush()
}
