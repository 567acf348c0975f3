package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var statusAddr string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show agent health",
	Run:   runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusAddr, "addr", "http://localhost:8080", "agent health address")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(statusAddr + "/health/detailed")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to reach agent: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	var report map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		fmt.Fprintf(os.Stderr, "failed to decode report: %v\n", err)
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(out))
}
