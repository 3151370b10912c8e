package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Kisii856/task-automation-platform/api/schemas"
	"github.com/Kisii856/task-automation-platform/internal/config"
	"github.com/Kisii856/task-automation-platform/internal/engine"
	"github.com/Kisii856/task-automation-platform/internal/observability"
	"github.com/Kisii856/task-automation-platform/internal/runner"
)

const (
	outputText = "text"
	outputJSON = "json"
)

type runOptions struct {
	file       string
	workflow   string
	structured string
	output     string
	save       bool
	progress   bool
}

// newRunCmd creates the `run` command.
func newRunCmd() *cobra.Command {
	var opts runOptions

	runCmd := &cobra.Command{
		Use:   "run [task...]",
		Short: "Decompose a task (or load steps) and execute it in a browser",
		Example: `  taskflow run "go to https://example.com and search for golang"
  taskflow run --file login.yaml --headless=false
  taskflow run --workflow 3f0c... --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			if err := opts.validate(args); err != nil {
				return err
			}

			logger := observability.GetLogger()
			c, err := initializeComponents(ctx, cfg, logger, true)
			if err != nil {
				return err
			}
			defer c.Shutdown()

			var observer engine.Observer
			if opts.progress {
				observer = progressObserver(cmd.ErrOrStderr())
			}

			var out *runner.Outcome
			switch {
			case opts.file != "":
				path, err := config.ExpandPath(opts.file)
				if err != nil {
					return err
				}
				steps, err := schemas.LoadSteps(path)
				if err != nil {
					return err
				}
				workflowID := ""
				if opts.save {
					rec, err := c.store.CreateWorkflow(ctx, "file:"+path, steps)
					if err != nil {
						return fmt.Errorf("saving workflow: %w", err)
					}
					workflowID = rec.ID
				}
				out, err = c.runner(nil, opts.save, observer).RunSteps(ctx, workflowID, steps)
				if out != nil {
					out.Task = "file:" + path
				}
				return printOutcome(cmd.OutOrStdout(), opts.output, out, err)

			case opts.workflow != "":
				rec, err := c.store.GetWorkflow(ctx, opts.workflow)
				if err != nil {
					return err
				}
				out, err = c.runner(nil, true, observer).RunSteps(ctx, rec.ID, rec.Steps)
				if out != nil {
					out.Task = rec.Task
				}
				return printOutcome(cmd.OutOrStdout(), opts.output, out, err)

			default:
				path, err := config.ExpandPath(opts.structured)
				if err != nil {
					return err
				}
				out, err = c.runner(c.decomposer(path), opts.save, observer).Run(ctx, strings.Join(args, " "))
				return printOutcome(cmd.OutOrStdout(), opts.output, out, err)
			}
		},
	}

	f := runCmd.Flags()
	f.StringVar(&opts.file, "file", "", "run steps from a JSON or YAML file")
	f.StringVar(&opts.workflow, "workflow", "", "run a stored workflow by id")
	f.StringVar(&opts.structured, "structured", "", "decompose from a structured step file instead of the task text")
	f.StringVarP(&opts.output, "output", "o", outputText, "output format (text or json)")
	f.BoolVar(&opts.save, "save", false, "persist the workflow and its run")
	f.BoolVar(&opts.progress, "progress", false, "print step progress to stderr")
	f.Bool("headless", true, "run the browser headless (overrides browser.headless)")
	f.Bool("script-conditions", false, "allow page-script step conditions (overrides engine.allow_script_conditions)")
	f.Int("max-sessions", 0, "cap on concurrent browser sessions (overrides browser.max_sessions)")
	return runCmd
}

func (o runOptions) validate(args []string) error {
	sources := 0
	if o.file != "" {
		sources++
	}
	if o.workflow != "" {
		sources++
	}
	if len(args) > 0 || o.structured != "" {
		sources++
	}
	if sources != 1 {
		return errors.New("exactly one of a task, --file or --workflow is required")
	}
	if o.output != outputText && o.output != outputJSON {
		return fmt.Errorf("unsupported output %q (expected text or json)", o.output)
	}
	return nil
}

func progressObserver(w io.Writer) engine.Observer {
	return func(ev engine.StepEvent) {
		switch ev.Status {
		case engine.StepCompleted:
			fmt.Fprintf(w, "[%d] %s: %s\n", ev.Index, ev.Action, ev.Result)
		case engine.StepSkipped:
			fmt.Fprintf(w, "[%d] %s: skipped\n", ev.Index, ev.Action)
		case engine.StepFailed:
			fmt.Fprintf(w, "[%d] %s: failed: %v\n", ev.Index, ev.Action, ev.Err)
		}
	}
}

// printOutcome writes the run's results and passes runErr through.
func printOutcome(w io.Writer, format string, out *runner.Outcome, runErr error) error {
	if out == nil {
		return runErr
	}
	if format == outputJSON {
		if err := printJSON(w, out); err != nil {
			return err
		}
		return runErr
	}
	if runErr != nil {
		var execErr *engine.ExecutionError
		if errors.As(runErr, &execErr) {
			fmt.Fprintf(w, "Workflow execution failed at step %d (%s): %s\n", execErr.StepIndex, execErr.Action, execErr.Code)
		}
		return runErr
	}
	for _, line := range out.Record.Results {
		fmt.Fprintln(w, line)
	}
	return nil
}
