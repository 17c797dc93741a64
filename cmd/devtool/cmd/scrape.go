package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"pricetrail/internal/envutil"
)

func newScrapeCmd() *cobra.Command {
	var base string
	var sync bool

	cmd := &cobra.Command{
		Use:   "scrape <url>",
		Short: "Submit a product URL to a running server for scraping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/products/scrape"
			timeout := 30 * time.Second
			if sync {
				path = "/api/scrape"
				timeout = 6 * time.Minute
			}

			payload, err := json.Marshal(map[string]string{"url": args[0]})
			if err != nil {
				return err
			}

			client := &http.Client{Timeout: timeout}
			resp, err := client.Post(base+path, "application/json", bytes.NewReader(payload))
			if err != nil {
				return fmt.Errorf("server not reachable at %s: %w", base, err)
			}
			defer resp.Body.Close()

			body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
			fmt.Fprintln(cmd.OutOrStdout(), resp.Status)
			fmt.Fprintln(cmd.OutOrStdout(), string(body))
			return nil
		},
	}

	cmd.Flags().StringVar(&base, "base", envutil.String(os.Getenv, "DEVTOOL_BASE_URL", "http://localhost:8080"), "Base URL of a running pricetrail server")
	cmd.Flags().BoolVar(&sync, "sync", false, "Use the synchronous scrape endpoint and wait for the full result")
	return cmd
}
