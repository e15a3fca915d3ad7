package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/sahayak-ai/sahayak/internal/core/config"
	"github.com/sahayak-ai/sahayak/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current health of all assistant services",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	url := fmt.Sprintf("http://localhost:%d/health/detailed", cfg.Server.Port)
	resp, err := client.Get(url)
	if err != nil {
		fmt.Printf("Failed to reach assistant at %s: %v\n", url, err)
		os.Exit(1)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var status domain.SystemStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		fmt.Printf("Failed to decode status: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Overall: %s\n", status.Overall)
	if status.RecoveryCount > 0 {
		fmt.Printf("Recoveries: %d (last %s)\n", status.RecoveryCount,
			status.LastRecoveryAttempt.Format(time.RFC3339))
	}
	fmt.Println()

	names := make([]string, 0, len(status.Services))
	for name := range status.Services {
		names = append(names, string(name))
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SERVICE\tHEALTHY\tLAST CHECK")
	for _, name := range names {
		rec := status.Services[domain.ServiceName(name)]
		lastCheck := "-"
		if !rec.LastCheck.IsZero() {
			lastCheck = rec.LastCheck.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%t\t%s\n", name, rec.Healthy, lastCheck)
	}
	_ = w.Flush()
}
