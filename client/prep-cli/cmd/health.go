package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show whether the index is ready",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return health(newHTTPClient(), endpoint("/healthz"), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func health(client *http.Client, url string, out io.Writer) error {
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("error contacting server: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode == http.StatusOK {
		fmt.Fprintf(out, "%s ready\n", color.GreenString("●"))
	} else {
		fmt.Fprintf(out, "%s not ready\n", color.YellowString("●"))
	}

	// Pretty print the JSON output
	var prettyJSON bytes.Buffer
	if err := json.Indent(&prettyJSON, body, "", "  "); err != nil {
		fmt.Fprintf(out, "%s\n", body)
	} else {
		fmt.Fprintln(out, prettyJSON.String())
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service not ready (status %d)", resp.StatusCode)
	}
	return nil
}
