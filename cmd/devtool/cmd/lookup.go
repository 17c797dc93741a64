package cmd

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"

	"pricetrail/internal/envutil"
)

func newLookupCmd() *cobra.Command {
	var base string

	cmd := &cobra.Command{
		Use:   "lookup <url>",
		Short: "Ask a running server whether a product URL is tracked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := base + "/api/products/lookup?url=" + url.QueryEscape(args[0])
			client := &http.Client{Timeout: 10 * time.Second}
			resp, err := client.Get(target)
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
	return cmd
}
