package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rebeliceyang/lazyweave/internal/weaviate"
)

var testCmd = &cobra.Command{
	Use:   "test <uri | id>",
	Short: "Check that an instance is reachable",
	Long: `Check that an instance is reachable and the API key is accepted.

The argument is either a uri or the id of a saved connection.

Examples:
  lazyweave test http://localhost:8080
  lazyweave test 3`,
	Args: cobra.ExactArgs(1),
	RunE: runTest,
}

var testAPIKey string

func init() {
	rootCmd.AddCommand(testCmd)
	testCmd.Flags().StringVar(&testAPIKey, "api-key", "", "API key to send with a uri")
}

func runTest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	uri := args[0]
	var apiKey *string
	if cmd.Flags().Changed("api-key") {
		apiKey = &testAPIKey
	}

	if id, err := strconv.ParseInt(args[0], 10, 64); err == nil {
		sess, err := openSession(ctx)
		if err != nil {
			return err
		}
		conn, ok := sess.Connections.Get(id)
		_ = sess.Close(ctx)
		if !ok {
			return fmt.Errorf("connection %d not found", id)
		}
		uri, apiKey = conn.URI, conn.APIKey
	}

	client, err := weaviate.New(uri, apiKey, cfg.RequestTimeout(), logger)
	if err != nil {
		return err
	}
	meta, err := client.Meta(ctx)
	if err != nil {
		return fmt.Errorf("✗ %s is not reachable: %w", uri, err)
	}
	_, _ = fmt.Fprintf(os.Stdout, "✓ %s is reachable (version %s)\n", uri, meta.Version)
	return nil
}
