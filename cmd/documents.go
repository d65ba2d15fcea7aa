package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zjrosen/vitae/internal/app"
	"github.com/zjrosen/vitae/internal/resume"
)

var exportOutput string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved résumés",
	Long: `List saved résumés as JSON, most recently edited first.

Examples:
  # List all résumés
  vitae list

  # Print only the IDs with jq
  vitae list | jq -r '.[].id'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openRepository()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		return listDocuments(cmd.Context(), db.DocumentRepository(), cmd.OutOrStdout())
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Export a résumé as markdown",
	Long: `Export a résumé as markdown.

Without --output the file is written to export_dir, named after the title.

Examples:
  vitae export 3f2b...
  vitae export 3f2b... -o cv.md`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openRepository()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		path, err := exportDocument(cmd.Context(), db.DocumentRepository(), args[0], exportOutput, cfg.ExportDir)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a résumé",
	Long: `Delete a résumé. The row is kept in the database and restored if the
same document is saved again.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openRepository()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		if err := db.DocumentRepository().Delete(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("deleting résumé: %w", err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "file to write (default: <export_dir>/<title>.md)")
	rootCmd.AddCommand(listCmd, exportCmd, deleteCmd)
}

func listDocuments(ctx context.Context, repo resume.Repository, w io.Writer) error {
	summaries, err := repo.List(ctx)
	if err != nil {
		return fmt.Errorf("listing résumés: %w", err)
	}
	if summaries == nil {
		summaries = []resume.Summary{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summaries)
}

// exportDocument writes the markdown of document id to output, or into dir
// when output is empty, and returns the written path.
func exportDocument(ctx context.Context, repo resume.Repository, id, output, dir string) (string, error) {
	doc, err := repo.FindByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("loading résumé: %w", err)
	}
	if output == "" {
		return app.ExportMarkdown(dir, doc)
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o750); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(output, []byte(resume.Markdown(doc)), 0o600); err != nil {
		return "", fmt.Errorf("writing export: %w", err)
	}
	return output, nil
}
