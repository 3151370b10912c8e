package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Kisii856/task-automation-platform/internal/config"
	"github.com/Kisii856/task-automation-platform/internal/observability"
	"github.com/Kisii856/task-automation-platform/internal/runner"
)

// ErrBatchFailures is returned when at least one task in a batch failed.
var ErrBatchFailures = errors.New("one or more batch tasks failed")

// newBatchCmd creates the `batch` command, which runs independent tasks
// concurrently with one browser session each.
func newBatchCmd() *cobra.Command {
	var file, output string
	var save bool

	batchCmd := &cobra.Command{
		Use:   "batch [--file tasks.txt | task, task...]",
		Short: "Run many independent tasks concurrently",
		Long: `Runs each task in its own browser session. Tasks come from --file, one per
line (blank lines and lines starting with # are ignored), or from the
arguments. A failing task does not stop the others.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}

			tasks := args
			if file != "" {
				path, err := config.ExpandPath(file)
				if err != nil {
					return err
				}
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("failed to open task file: %w", err)
				}
				tasks, err = readTasks(f)
				f.Close()
				if err != nil {
					return err
				}
			}
			if len(tasks) == 0 {
				return errors.New("no tasks given")
			}

			logger := observability.GetLogger()
			c, err := initializeComponents(ctx, cfg, logger, true)
			if err != nil {
				return err
			}
			defer c.Shutdown()

			outcomes := c.runner(c.decomposer(""), save, nil).RunAll(ctx, tasks)
			if err := printBatch(cmd.OutOrStdout(), output, outcomes); err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if _, failed := runner.Summary(outcomes); failed > 0 {
				return ErrBatchFailures
			}
			return nil
		},
	}

	f := batchCmd.Flags()
	f.StringVar(&file, "file", "", "file with one task per line")
	f.StringVarP(&output, "output", "o", outputText, "output format (text or json)")
	f.BoolVar(&save, "save", false, "persist every workflow and its run")
	f.Int("concurrency", 0, "tasks run at once (overrides runner.concurrency)")
	f.Bool("headless", true, "run the browser headless (overrides browser.headless)")
	f.Int("max-sessions", 0, "cap on concurrent browser sessions (overrides browser.max_sessions)")
	return batchCmd
}

// readTasks returns the non-blank, non-comment lines of r.
func readTasks(r io.Reader) ([]string, error) {
	var tasks []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tasks = append(tasks, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tasks: %w", err)
	}
	return tasks, nil
}

type batchResult struct {
	Task      string   `json:"task"`
	Status    string   `json:"status"`
	Results   []string `json:"results,omitempty"`
	ErrorCode string   `json:"error_code,omitempty"`
	Error     string   `json:"error,omitempty"`
}

func printBatch(w io.Writer, format string, outcomes []runner.Outcome) error {
	results := make([]batchResult, len(outcomes))
	for i, o := range outcomes {
		r := batchResult{Task: o.Task, Status: "ok", Results: o.Record.Results}
		if o.Err != nil {
			r.Status = "failed"
			r.Results = nil
			r.ErrorCode = o.Record.ErrorCode
			r.Error = o.Err.Error()
		}
		results[i] = r
	}

	if format == outputJSON {
		return printJSON(w, results)
	}
	for i, r := range results {
		fmt.Fprintf(w, "#%d %s [%s]\n", i+1, r.Task, r.Status)
		for _, line := range r.Results {
			fmt.Fprintf(w, "    %s\n", line)
		}
		if r.Error != "" {
			fmt.Fprintf(w, "    error: %s\n", r.Error)
		}
	}
	ok, failed := runner.Summary(outcomes)
	fmt.Fprintf(w, "%d succeeded, %d failed\n", ok, failed)
	return nil
}
