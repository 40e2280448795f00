package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the chat service a question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.Join(args, " ")
		return ask(newHTTPClient(), endpoint("/chat"), question, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}

type chatResponse struct {
	Answer string `json:"answer"`
	Error  string `json:"error"`
}

func ask(client *http.Client, url, question string, out io.Writer) error {
	payload, err := json.Marshal(map[string]string{"question": question})
	if err != nil {
		return fmt.Errorf("error creating JSON payload: %w", err)
	}

	resp, err := client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("error sending question: %w", err)
	}
	defer resp.Body.Close()

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("error decoding response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if result.Error == "" {
			result.Error = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, result.Error)
	}

	fmt.Fprintln(out, result.Answer)
	return nil
}
