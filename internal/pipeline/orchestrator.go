package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/spherical/book-translator/internal/domain"
	"github.com/spherical/book-translator/internal/store"
)

// Options tune one pipeline run.
type Options struct {
	// StartPage is the first page to process (1-based). Defaults to 1.
	StartPage int

	// EndPage bounds the run inclusively; 0 means run to source exhaustion.
	EndPage int

	// Restart ignores the saved resume point and starts at StartPage.
	// Pages already committed to the result log are still skipped.
	Restart bool

	// WindowSize is the context-window capacity.
	WindowSize int

	// MaxPages bounds how many pages go through the backend in this run;
	// 0 means unlimited. Skipped pages do not count.
	MaxPages int

	// MaxConsecutiveEmpty ends the run normally after this many empty pages
	// in a row; 0 disables the check. Used by the capture source, which has
	// no page count and signals the end of a book with blank captures.
	MaxConsecutiveEmpty int

	// OnResult, when set, observes every committed result. Skipped pages are
	// not reported.
	OnResult func(result domain.PageResult)
}

// RunStats summarizes a completed run.
type RunStats struct {
	Processed int // pages that went through the backend this run
	Succeeded int
	Failed    int
	Skipped   int // already committed, no inference call made
	LastPage  int
}

// Orchestrator owns the sequential translation loop. Pages are processed
// strictly in order because each call is conditioned on the previous
// successful output; the inference call is the only suspension point.
type Orchestrator struct {
	backend  domain.Backend
	results  *store.ResultLog
	progress *store.ProgressStore
	logger   zerolog.Logger
}

// New creates an orchestrator over the given backend and stores.
func New(backend domain.Backend, results *store.ResultLog, progress *store.ProgressStore, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		backend:  backend,
		results:  results,
		progress: progress,
		logger:   logger,
	}
}

// Run processes pages from source until the end bound or source exhaustion.
// Terminal page failures are committed as error entries and the run goes
// on; only store failures and cancellation abort it. The result log and
// progress record are committed page by page, so interrupting between
// pages always leaves a consistent resume point.
func (o *Orchestrator) Run(ctx context.Context, source domain.PageSource, opts Options) (*RunStats, error) {
	if opts.StartPage < 1 {
		opts.StartPage = 1
	}

	committed, tail, err := o.loadCommitted()
	if err != nil {
		return nil, err
	}

	runState := domain.ProgressState{
		TotalPages:   source.TotalPages(),
		RunID:        uuid.NewString(),
		RunStartedAt: time.Now().UTC(),
	}

	if err := o.reconcileProgress(tail, runState); err != nil {
		return nil, err
	}

	from := opts.StartPage
	if !opts.Restart && tail >= opts.StartPage {
		from = tail + 1
	}

	window := RebuildWindow(opts.WindowSize, committedSlice(committed), from)

	o.logger.Info().
		Int("from_page", from).
		Int("committed", len(committed)).
		Int("context_entries", window.Len()).
		Str("run_id", runState.RunID).
		Msg("Starting translation run")

	iter, err := source.Open(ctx, from)
	if err != nil {
		return nil, domain.IOError(fmt.Sprintf("opening page source at page %d", from), err)
	}

	stats := &RunStats{LastPage: tail}
	consecutiveEmpty := 0

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		page, err := iter.Next(ctx)
		if errors.Is(err, domain.ErrNoMorePages) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			return stats, domain.IOError("reading next page", err)
		}

		if opts.EndPage > 0 && page.Number > opts.EndPage {
			break
		}

		if _, ok := committed[page.Number]; ok {
			o.logger.Debug().Int("page", page.Number).Msg("Page already committed, skipping")
			stats.Skipped++
			continue
		}

		result, translated, procErr := o.processPage(ctx, page, window)
		if procErr != nil {
			return stats, procErr
		}

		if result.Status == domain.StatusSuccess {
			window.Push(translated)
			stats.Succeeded++
			consecutiveEmpty = 0
		} else {
			stats.Failed++
			if page.IsEmpty() {
				consecutiveEmpty++
			} else {
				consecutiveEmpty = 0
			}
		}

		runState.LastCompletedPage = page.Number
		runState.UpdatedAt = time.Now().UTC()
		if err := o.commit(result, runState); err != nil {
			return stats, err
		}

		committed[page.Number] = result
		stats.Processed++
		stats.LastPage = page.Number

		if opts.OnResult != nil {
			opts.OnResult(result)
		}

		if opts.MaxConsecutiveEmpty > 0 && consecutiveEmpty >= opts.MaxConsecutiveEmpty {
			o.logger.Info().
				Int("consecutive_empty", consecutiveEmpty).
				Msg("Reached consecutive empty page limit, ending run")
			break
		}

		if opts.MaxPages > 0 && stats.Processed >= opts.MaxPages {
			o.logger.Info().Int("max_pages", opts.MaxPages).Msg("Reached page limit for this run")
			break
		}
	}

	o.logger.Info().
		Int("processed", stats.Processed).
		Int("succeeded", stats.Succeeded).
		Int("failed", stats.Failed).
		Int("skipped", stats.Skipped).
		Msg("Translation run finished")

	return stats, nil
}

// processPage runs one page through the backend and turns the outcome into
// a committable result. A context cancellation surfaces as an error and
// nothing is committed for the page.
func (o *Orchestrator) processPage(ctx context.Context, page domain.Page, window *ContextWindow) (domain.PageResult, string, error) {
	if page.IsEmpty() {
		o.logger.Warn().Int("page", page.Number).Msg("Page has no usable content")
		err := domain.FatalError(fmt.Sprintf("page %d", page.Number), domain.ErrEmptyPage)
		return domain.NewErrorResult(page, err), "", nil
	}

	o.logger.Info().Int("page", page.Number).Str("kind", string(page.Kind)).Msg("Translating page")

	translated, err := o.backend.Translate(ctx, page, window.Snapshot())
	if err == nil {
		return domain.NewSuccessResult(page, translated), translated, nil
	}
	if ctx.Err() != nil {
		return domain.PageResult{}, "", ctx.Err()
	}

	// Terminal page failures are recorded and skipped: one bad page never
	// aborts the whole document.
	o.logger.Error().Int("page", page.Number).Err(err).Msg("Page translation failed")
	return domain.NewErrorResult(page, err), "", nil
}

// commit appends the result and then advances the progress record. If the
// process dies between the two writes, the next run repairs progress from
// the log tail, so the page is never processed twice.
func (o *Orchestrator) commit(result domain.PageResult, state domain.ProgressState) error {
	if err := o.results.Append(result); err != nil {
		return err
	}
	return o.progress.Write(state)
}

// loadCommitted reads the repaired result log into an index keyed by page
// number, plus the tail page of the log.
func (o *Orchestrator) loadCommitted() (map[int]domain.PageResult, int, error) {
	results, err := o.results.Results()
	if err != nil {
		return nil, 0, err
	}

	committed := make(map[int]domain.PageResult, len(results))
	tail := 0
	for _, r := range results {
		committed[r.PageNumber] = r
		if r.PageNumber > tail {
			tail = r.PageNumber
		}
	}
	return committed, tail, nil
}

// reconcileProgress repairs the progress record when it diverges from the
// result log tail. The log is ground truth: a crash between the two store
// writes leaves progress one page behind, never ahead.
func (o *Orchestrator) reconcileProgress(tail int, runState domain.ProgressState) error {
	saved, err := o.progress.Read()
	if err != nil {
		o.logger.Warn().Err(err).Msg("Progress record unreadable, rebuilding from result log")
		saved = nil
	}

	if saved != nil && saved.LastCompletedPage == tail {
		return nil
	}
	if saved == nil && tail == 0 {
		return nil
	}

	if saved != nil {
		o.logger.Warn().
			Int("progress_page", saved.LastCompletedPage).
			Int("log_tail", tail).
			Msg("Progress record diverges from result log, repairing to log tail")
	}

	runState.LastCompletedPage = tail
	runState.UpdatedAt = time.Now().UTC()
	return o.progress.Write(runState)
}

// committedSlice returns the committed results ordered by page number for
// context rebuilding.
func committedSlice(committed map[int]domain.PageResult) []domain.PageResult {
	max := 0
	for n := range committed {
		if n > max {
			max = n
		}
	}
	out := make([]domain.PageResult, 0, len(committed))
	for n := 1; n <= max; n++ {
		if r, ok := committed[n]; ok {
			out = append(out, r)
		}
	}
	return out
}
