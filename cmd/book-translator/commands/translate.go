package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/spherical/book-translator/cmd/book-translator/ui"
	"github.com/spherical/book-translator/internal/domain"
	"github.com/spherical/book-translator/internal/llm"
	"github.com/spherical/book-translator/internal/pipeline"
	"github.com/spherical/book-translator/internal/source"
	"github.com/spherical/book-translator/internal/store"
)

var (
	translatePDFPath    string
	translateWorkDir    string
	translatePromptPath string
	translateStartPage  int
	translateEndPage    int
	translateMaxPages   int
	translateRestart    bool
)

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Translate a PDF book page by page",
	Long: `Translate walks the PDF one page at a time and commits every outcome to
results.jsonl in the work directory. Re-running the same command resumes
after the last committed page.`,
	RunE: runTranslate,
}

func init() {
	translateCmd.Flags().StringVarP(&translatePDFPath, "pdf", "p", "", "Path to the PDF file (required)")
	translateCmd.Flags().StringVarP(&translateWorkDir, "workdir", "w", "", "Directory for result log and progress state (default: <pdf>.translation)")
	translateCmd.Flags().StringVar(&translatePromptPath, "prompt", "", "Path to a custom prompt template")
	translateCmd.Flags().IntVar(&translateStartPage, "start", 1, "First page to translate")
	translateCmd.Flags().IntVar(&translateEndPage, "end", 0, "Last page to translate (0 = to the end)")
	translateCmd.Flags().IntVar(&translateMaxPages, "max-pages", 0, "Translate at most this many pages in this run (0 = unlimited)")
	translateCmd.Flags().BoolVar(&translateRestart, "restart", false, "Ignore the saved resume point and start at --start")
	translateCmd.MarkFlagRequired("pdf")
	rootCmd.AddCommand(translateCmd)
}

func runTranslate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := newLogger(cfg)

	workDir := translateWorkDir
	if workDir == "" {
		workDir = defaultWorkDir(translatePDFPath)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return domain.IOError(fmt.Sprintf("creating work directory %s", workDir), err)
	}

	sp := ui.NewSpinner("Opening " + filepath.Base(translatePDFPath) + "...")
	sp.Start()
	src, err := source.OpenPDF(translatePDFPath, logger)
	sp.Stop()
	if err != nil {
		return err
	}
	defer src.Close()

	prompt, err := llm.LoadPromptTemplate(translatePromptPath)
	if err != nil {
		return err
	}

	retrier := llm.NewRetrier(llm.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
		MaxDelay:    cfg.Retry.MaxDelay,
		Jitter:      cfg.Retry.Jitter,
	}, logger)

	client := llm.NewClient(llm.ClientConfig{
		APIKey:  cfg.Backend.APIKey,
		Model:   cfg.Backend.Model,
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.Backend.RequestTimeout,
	}, prompt, retrier, logger)

	results, err := store.OpenResultLog(filepath.Join(workDir, "results.jsonl"), logger)
	if err != nil {
		return err
	}
	progress := store.NewProgressStore(filepath.Join(workDir, "progress.json"))

	ui.Section("Book Translation")
	ui.Info("PDF: %s (%d pages)", translatePDFPath, src.TotalPages())
	ui.Info("Model: %s", cfg.Backend.Model)
	ui.Info("Work directory: %s", workDir)

	bar := ui.NewProgressBar(int64(src.TotalPages()), "Translating")
	defer bar.Finish()

	orch := pipeline.New(client, results, progress, logger)
	stats, err := orch.Run(ctx, src, pipeline.Options{
		StartPage:           translateStartPage,
		EndPage:             translateEndPage,
		Restart:             translateRestart,
		WindowSize:          cfg.Context.WindowSize,
		MaxPages:            translateMaxPages,
		MaxConsecutiveEmpty: consecutiveEmptyLimit(src.TotalPages(), cfg.Capture.MaxConsecutiveEmpty),
		OnResult: func(result domain.PageResult) {
			bar.Set(int64(result.PageNumber))
		},
	})
	bar.Finish()

	if stats != nil {
		printRunSummary(stats)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) && stats != nil {
			ui.Warning("Interrupted; run the same command again to resume at page %d", stats.LastPage+1)
			return nil
		}
		return err
	}

	ui.Success("Translation complete; results in %s", filepath.Join(workDir, "results.jsonl"))
	return nil
}

func printRunSummary(stats *pipeline.RunStats) {
	ui.Info("Pages processed: %d (succeeded %d, failed %d, skipped %d)",
		stats.Processed, stats.Succeeded, stats.Failed, stats.Skipped)
}

// consecutiveEmptyLimit returns the blank-page stop for a run. The limit is
// an end-of-book heuristic for sources with no page count; a finite source
// ends on exhaustion, and blank leaves mid-book must not cut the run short.
func consecutiveEmptyLimit(totalPages, configured int) int {
	if totalPages > 0 {
		return 0
	}
	return configured
}

// defaultWorkDir derives the state directory from the input path, e.g.
// book.pdf -> book.translation.
func defaultWorkDir(pdfPath string) string {
	base := filepath.Base(pdfPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(pdfPath), base+".translation")
}
