package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/skella/internal/constants"
	"github.com/fivetwenty-io/skella/pkg/skella"
)

// batchStep is one entry of a batch file.
type batchStep struct {
	ID         string            `yaml:"id"`
	Op         string            `yaml:"op"`
	Resource   string            `yaml:"resource"`
	Attributes skella.Attributes `yaml:"attributes"`
}

type batchOutcome struct {
	ID       string            `json:"id"                   yaml:"id"`
	Op       string            `json:"op"                   yaml:"op"`
	URL      string            `json:"url"                  yaml:"url"`
	Success  bool              `json:"success"              yaml:"success"`
	Error    string            `json:"error,omitempty"      yaml:"error,omitempty"`
	Duration string            `json:"duration"             yaml:"duration"`
	Result   skella.Attributes `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// NewBatchCommand creates the batch command.
func NewBatchCommand() *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "batch FILE",
		Short: "Run fetch, save and delete operations from a file",
		Long: `Run the operations listed in a YAML or JSON file concurrently. Each entry
names an op (fetch, save or destroy), a resource and its attributes:

  - id: me
    op: fetch
    resource: user
    attributes: {id: 4f1c...}`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, err := readBatchFile(args[0])
			if err != nil {
				return err
			}

			conn, err := connect(cmd)
			if err != nil {
				return err
			}
			defer conn.Close()

			builder := skella.NewBatchBuilder()

			for index, step := range steps {
				model, err := conn.Schema().NewModel(step.Resource, step.Attributes)
				if err != nil {
					return fmt.Errorf("operation %d: %w", index+1, err)
				}

				id := step.ID
				if id == "" {
					id = strconv.Itoa(index + 1)
				}

				switch skella.BatchOperationType(step.Op) {
				case skella.BatchFetch:
					builder.AddFetch(id, model)
				case skella.BatchSave:
					builder.AddSave(id, model)
				case skella.BatchDestroy:
					builder.AddDestroy(id, model)
				default:
					return fmt.Errorf("operation %d: %w: %q", index+1, skella.ErrUnsupportedOperation, step.Op)
				}
			}

			results, err := skella.NewBatchExecutor(concurrency).Execute(commandContext(cmd), builder.Build())
			if err != nil {
				return fmt.Errorf("failed to run batch: %w", err)
			}

			outcomes, failed := summarizeBatch(results)

			err = render(cmd.OutOrStdout(), outcomes, func(table *tablewriter.Table) error {
				table.Header("ID", "Op", "URL", "Status", "Duration", "Error")

				for _, outcome := range outcomes {
					status := "failed"
					if outcome.Success {
						status = constants.CheckMarkSymbol
					}

					err := table.Append([]string{outcome.ID, outcome.Op, outcome.URL, status, outcome.Duration, orNone(outcome.Error)})
					if err != nil {
						return fmt.Errorf("failed to append row: %w", err)
					}
				}

				return nil
			})
			if err != nil {
				return err
			}

			if failed > 0 {
				return fmt.Errorf("%w: %d of %d", constants.ErrBatchFailed, failed, len(outcomes))
			}

			return nil
		},
	}

	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", constants.DefaultBatchConcurrency, "operations run at once")

	return cmd
}

func readBatchFile(path string) ([]batchStep, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}

	var steps []batchStep

	err = yaml.Unmarshal(data, &steps)
	if err != nil {
		return nil, fmt.Errorf("failed to parse batch file: %w", err)
	}

	if len(steps) == 0 {
		return nil, constants.ErrBatchEmpty
	}

	return steps, nil
}

func summarizeBatch(results []skella.BatchResult) ([]batchOutcome, int) {
	outcomes := make([]batchOutcome, 0, len(results))
	failed := 0

	for _, result := range results {
		outcome := batchOutcome{
			ID:       result.ID,
			Op:       string(result.Type),
			Success:  result.Success,
			Duration: result.Duration.Round(time.Millisecond).String(),
		}

		if result.Model != nil {
			outcome.URL = result.Model.URL()
		}

		if result.Error != nil {
			failed++
			outcome.Error = result.Error.Error()

			var apiErr *skella.APIError
			if errors.As(result.Error, &apiErr) && apiErr.ID != "" {
				outcome.Error = apiErr.ID
			}
		} else if result.Type != skella.BatchDestroy {
			outcome.Result = result.Model.Attributes()
		}

		outcomes = append(outcomes, outcome)
	}

	return outcomes, failed
}
