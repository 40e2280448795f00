package cmd

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	serverURL string
	timeout   time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "prep-cli",
	Short: "A CLI client for the interview-prep chat service",
	Long:  `A command-line interface for asking software engineering and coding interview questions.`,

	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "✗ %s\n", err)
		os.Exit(1)
	}
}

func init() {
	defaultURL := os.Getenv("PREPBOT_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:5001"
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultURL, "chat service base URL (env PREPBOT_URL)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 90*time.Second, "request timeout")
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: timeout}
}

func endpoint(path string) string {
	return strings.TrimRight(serverURL, "/") + path
}
