package commands

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spherical/book-translator/cmd/book-translator/ui"
	"github.com/spherical/book-translator/internal/domain"
	"github.com/spherical/book-translator/internal/export"
	"github.com/spherical/book-translator/internal/store"
)

var (
	exportResultsPath   string
	exportOutputPath    string
	exportTitle         string
	exportWithErrors    bool
	exportWithOriginals bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a result log as a Markdown document",
	Long: `Export reads a results.jsonl file produced by translate and writes the
translated pages as a single Markdown document in page order.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportResultsPath, "results", "r", "", "Path to results.jsonl (required)")
	exportCmd.Flags().StringVarP(&exportOutputPath, "output", "o", "", "Output Markdown path (default: <results>.md)")
	exportCmd.Flags().StringVar(&exportTitle, "title", "", "Document title")
	exportCmd.Flags().BoolVar(&exportWithErrors, "with-errors", false, "Render placeholders for failed pages")
	exportCmd.Flags().BoolVar(&exportWithOriginals, "with-originals", false, "Append original-text excerpts under each page")
	exportCmd.MarkFlagRequired("results")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	results, err := store.ReadResults(exportResultsPath, logger)
	if err != nil {
		return err
	}

	outputPath := exportOutputPath
	if outputPath == "" {
		outputPath = strings.TrimSuffix(exportResultsPath, filepath.Ext(exportResultsPath)) + ".md"
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return domain.IOError("creating output file "+outputPath, err)
	}
	defer out.Close()

	stats, err := export.Markdown(out, results, export.Options{
		Title:           exportTitle,
		IncludeErrors:   exportWithErrors,
		IncludeOriginal: exportWithOriginals,
	})
	if err != nil {
		return err
	}

	if stats.Failed > 0 {
		ui.Warning("%d of %d pages have no translation", stats.Failed, stats.Pages)
	}
	ui.Success("Exported %d pages to %s", stats.Rendered, outputPath)
	return nil
}
