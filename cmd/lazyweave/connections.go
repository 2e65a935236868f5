package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rebeliceyang/lazyweave/internal/export"
	"github.com/rebeliceyang/lazyweave/internal/models"
)

var connectionsCmd = &cobra.Command{
	Use:     "connections",
	Short:   "Manage saved connections",
	Aliases: []string{"conn"},
}

var connectionsListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List saved connections",
	Aliases: []string{"ls"},
	Args:    cobra.NoArgs,
	RunE:    runConnectionsList,
}

var connectionsAddCmd = &cobra.Command{
	Use:   "add <name> <uri>",
	Short: "Save a new connection",
	Long: `Save a new connection.

Examples:
  lazyweave connections add local http://localhost:8080
  lazyweave connections add prod https://prod.example.com --api-key $KEY --favorite`,
	Args: cobra.ExactArgs(2),
	RunE: runConnectionsAdd,
}

var connectionsRemoveCmd = &cobra.Command{
	Use:     "remove <id>",
	Short:   "Delete a saved connection",
	Aliases: []string{"rm"},
	Args:    cobra.ExactArgs(1),
	RunE:    runConnectionsRemove,
}

var connectionsExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write saved connections to a YAML file, without API keys",
	Args:  cobra.ExactArgs(1),
	RunE:  runConnectionsExport,
}

var connectionsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Save the connections listed in a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE:  runConnectionsImport,
}

var (
	addAPIKey   string
	addColor    string
	addFavorite bool
)

func init() {
	rootCmd.AddCommand(connectionsCmd)
	connectionsCmd.AddCommand(connectionsListCmd, connectionsAddCmd, connectionsRemoveCmd,
		connectionsExportCmd, connectionsImportCmd)

	connectionsAddCmd.Flags().StringVar(&addAPIKey, "api-key", "", "API key, stored in the OS keyring")
	connectionsAddCmd.Flags().StringVar(&addColor, "color", "", "color tag shown in the UI")
	connectionsAddCmd.Flags().BoolVar(&addFavorite, "favorite", false, "list the connection first")
}

func runConnectionsList(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close(ctx) }()

	conns := sess.Connections.List()
	if len(conns) == 0 {
		_, _ = fmt.Fprintln(os.Stdout, "No connections saved.")
		_, _ = fmt.Fprintln(os.Stdout, "\nAdd one with: lazyweave connections add <name> <uri>")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tURI\tAPI KEY\tCOLOR")
	for _, c := range conns {
		name := c.Name
		if c.Favorite {
			name = "* " + name
		}
		key := "-"
		if c.APIKey != nil {
			key = "yes"
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", c.ID, name, c.URI, key, c.Color)
	}
	return w.Flush()
}

func runConnectionsAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close(ctx) }()

	rec := models.ConnectionRecord{
		Name:     args[0],
		URI:      args[1],
		Color:    addColor,
		Favorite: addFavorite,
	}
	if cmd.Flags().Changed("api-key") {
		rec.APIKey = &addAPIKey
	}

	id, err := sess.Connections.Save(ctx, rec)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(os.Stdout, "✓ Saved %s (id %d)\n", rec.Name, id)
	return nil
}

func runConnectionsRemove(_ *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid connection id %q", args[0])
	}

	ctx := context.Background()
	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close(ctx) }()

	if err := sess.Connections.Remove(ctx, id); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(os.Stdout, "✓ Removed connection %d\n", id)
	return nil
}

func runConnectionsExport(_ *cobra.Command, args []string) error {
	ctx := context.Background()
	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close(ctx) }()

	conns := sess.Connections.List()
	recs := make([]models.ConnectionRecord, 0, len(conns))
	for _, c := range conns {
		recs = append(recs, c.ConnectionRecord)
	}
	if err := export.ConnectionsToYAML(recs, args[0]); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(os.Stdout, "✓ Exported %d connections to %s\n", len(recs), args[0])
	return nil
}

func runConnectionsImport(_ *cobra.Command, args []string) error {
	recs, err := export.ConnectionsFromYAML(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close(ctx) }()

	var errs []error
	saved := 0
	for _, rec := range recs {
		if _, err := sess.Connections.Save(ctx, rec); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rec.Name, err))
			continue
		}
		saved++
	}
	_, _ = fmt.Fprintf(os.Stdout, "✓ Imported %d of %d connections\n", saved, len(recs))
	return errors.Join(errs...)
}
