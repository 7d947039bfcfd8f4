package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caseflow-systems/docingest/internal/repository"
	"github.com/caseflow-systems/docingest/internal/seeder"
)

var (
	seedCases     int
	seedChecklist string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed development data",
	Long: `Generate fake cases with classified documents and insert them into
the database. Intended for development and demo environments.

Examples:
  docingest-cli seed --config config.yaml
  docingest-cli seed --cases 50
  docingest-cli seed --checklist-url https://store.example.com/checklist.pdf`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().IntVar(&seedCases, "cases", 10, "number of cases to generate")
	seedCmd.Flags().StringVar(&seedChecklist, "checklist-url", "", "also seed the checklist config with this URL")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
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

	cases := seeder.GenerateCases(seedCases, c.Storage.URL, c.Storage.Bucket)

	total := 0
	for _, sc := range cases {
		for _, doc := range sc.Documents {
			if err := repo.UpsertDocument(ctx, doc); err != nil {
				return fmt.Errorf("seed case %s: %w", sc.CaseID, err)
			}
			total++
		}
		fmt.Printf("Seeded case %s (%s): %d documents\n", sc.CaseID, sc.Company, len(sc.Documents))
	}

	if seedChecklist != "" {
		if err := repo.SetChecklistURL(ctx, c.Checklist.ConfigName, seedChecklist); err != nil {
			return fmt.Errorf("seed checklist config: %w", err)
		}
		fmt.Printf("Seeded checklist config %s\n", c.Checklist.ConfigName)
	}

	count, err := repo.CountDocuments(ctx)
	if err != nil {
		return fmt.Errorf("count documents: %w", err)
	}
	fmt.Printf("\n%d cases, %d documents seeded, %d total in database\n", len(cases), total, count)
	return nil
}
