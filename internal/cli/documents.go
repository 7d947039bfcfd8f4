package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caseflow-systems/docingest/internal/repository"
)

var documentsCmd = &cobra.Command{
	Use:   "documents <case-id>",
	Short: "List documents registered for a case",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocuments,
}

func init() {
	rootCmd.AddCommand(documentsCmd)
}

func runDocuments(cmd *cobra.Command, args []string) error {
	c, err := requireConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	repo, err := repository.NewPostgresRepository(ctx, c.Database.ConnString())
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer repo.Close()

	docs, err := repo.ListDocuments(ctx, args[0])
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}
	if len(docs) == 0 {
		fmt.Printf("No documents registered for case %s\n", args[0])
		return nil
	}

	fmt.Printf("%-40s %-24s %-10s %s\n", "NAME", "TAG", "STATUS", "URL")
	for _, doc := range docs {
		fmt.Printf("%-40s %-24s %-10s %s\n", doc.Name, doc.Tag, doc.Status, doc.FileURL)
	}
	fmt.Printf("\n%d documents\n", len(docs))

	return nil
}
