package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caseflow-systems/docingest/internal/dlq"
)

var dlqLimit int

var dlqCmd = &cobra.Command{
	Use:   "dlq",
	Short: "Dead letter queue commands",
}

var dlqListCmd = &cobra.Command{
	Use:   "list",
	Short: "List dead-lettered jobs",
	Long:  "Read failed transfers, analyses and field updates from the configured DLQ backend",
	RunE:  runDLQList,
}

func init() {
	dlqListCmd.Flags().IntVar(&dlqLimit, "limit", 50, "maximum entries to show")
	dlqCmd.AddCommand(dlqListCmd)
	rootCmd.AddCommand(dlqCmd)
}

func openDLQ(ctx context.Context) (dlq.Writer, error) {
	c, err := requireConfig()
	if err != nil {
		return nil, err
	}
	if !c.DLQ.Enabled {
		return nil, fmt.Errorf("dlq disabled in config")
	}

	switch c.DLQ.Backend {
	case "jetstream":
		return dlq.NewJetStreamQueue(ctx, c.DLQ.NatsURL)
	case "file":
		return dlq.NewQueue(c.DLQ.Path)
	default:
		return nil, fmt.Errorf("unknown dlq backend: %s", c.DLQ.Backend)
	}
}

func runDLQList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	queue, err := openDLQ(ctx)
	if err != nil {
		return err
	}

	jobs, err := queue.List(ctx, dlqLimit)
	if err != nil {
		return fmt.Errorf("list dlq: %w", err)
	}
	if len(jobs) == 0 {
		fmt.Println("Dead letter queue is empty")
		return nil
	}

	fmt.Printf("%-20s %-12s %-12s %-24s %s\n", "TIME", "KIND", "CASE", "REASON", "ERROR")
	for _, job := range jobs {
		fmt.Printf("%-20s %-12s %-12s %-24s %s\n",
			job.Timestamp.Format("2006-01-02 15:04:05"),
			job.Kind, job.CaseID, job.Reason, job.Error)
	}
	fmt.Printf("\n%d entries\n", len(jobs))

	return nil
}
