package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show service status",
	Long:  "Query a running service instance for its health, readiness and dead letter queue counters",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	serverURL, _ := cmd.Flags().GetString("server-url")
	client := &http.Client{Timeout: 10 * time.Second}

	for _, endpoint := range []string{"/healthz", "/readyz", "/dlq/stats"} {
		resp, err := client.Get(serverURL + endpoint)
		if err != nil {
			return fmt.Errorf("query %s: %w", endpoint, err)
		}

		var body map[string]interface{}
		err = json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode %s response: %w", endpoint, err)
		}

		fmt.Printf("%s (%d):\n", endpoint, resp.StatusCode)
		for k, v := range body {
			fmt.Printf("  %s: %v\n", k, v)
		}
	}

	return nil
}
