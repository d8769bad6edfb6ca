package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/siance/internal/logging"
	"github.com/ppiankov/siance/internal/model"
	"github.com/ppiankov/siance/internal/pipeline"
)

// LetterProcessor analyzes one letter and never fails; problems are recorded
// on the report. *pipeline.Processor satisfies it.
type LetterProcessor interface {
	ProcessLetter(ctx context.Context, letter model.Letter) *model.Report
}

// TimeoutObserver is told about letters whose result was discarded
type TimeoutObserver interface {
	ObserveTimeout()
}

// LetterJob processes one letter under an optional deadline
type LetterJob struct {
	Index     int
	Letter    model.Letter
	Processor LetterProcessor
	Timeout   time.Duration
}

// Execute runs the processor. When the deadline passes first, whatever the
// processor has computed so far is dropped and a timeout report is returned.
func (j *LetterJob) Execute(ctx context.Context) Result {
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	type outcome struct {
		report *model.Report
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if v := recover(); v != nil {
				done <- outcome{err: fmt.Errorf("letter %s panicked: %v", j.Letter.ID, v)}
			}
		}()
		done <- outcome{report: j.Processor.ProcessLetter(ctx, j.Letter)}
	}()

	select {
	case o := <-done:
		return &LetterResult{Index: j.Index, Letter: j.Letter, Report: o.report, Error: o.err}
	case <-ctx.Done():
		if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return &LetterResult{Index: j.Index, Letter: j.Letter, Error: ctx.Err()}
		}
		return &LetterResult{
			Index:    j.Index,
			Letter:   j.Letter,
			Report:   timeoutReport(j.Letter, ctx.Err()),
			TimedOut: true,
		}
	}
}

func timeoutReport(letter model.Letter, cause error) *model.Report {
	return &model.Report{
		LetterID:    letter.ID,
		Name:        letter.Name,
		ProcessedAt: time.Now().UTC(),
		Characters:  len([]rune(letter.Text)),
		Zones:       []model.Zone{},
		Demands:     []model.DemandSpan{},
		Failures: []model.Failure{{
			Kind:    model.FailureTimeout,
			Message: fmt.Sprintf("partial result discarded: %v", cause),
		}},
	}
}

// LetterResult represents the result of a letter job
type LetterResult struct {
	Index    int
	Letter   model.Letter
	Report   *model.Report
	TimedOut bool
	Error    error
}

// GetError returns the error from the letter result
func (r *LetterResult) GetError() error {
	return r.Error
}

// BatchProcessor processes many letters concurrently
type BatchProcessor struct {
	processor   LetterProcessor
	concurrency int
	timeout     time.Duration
	observer    TimeoutObserver
	log         logging.Logger
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(processor LetterProcessor, cfg model.ConcurrencyConfig, log logging.Logger) *BatchProcessor {
	return &BatchProcessor{
		processor:   processor,
		concurrency: cfg.Workers,
		timeout:     cfg.LetterTimeout,
		log:         logging.OrNop(log).Named("batch"),
	}
}

// WithTimeoutObserver registers an observer for discarded letters
func (b *BatchProcessor) WithTimeoutObserver(o TimeoutObserver) *BatchProcessor {
	b.observer = o
	return b
}

// ProcessLetters processes letters concurrently. Results are in input order;
// a failing letter never stops the others.
func (b *BatchProcessor) ProcessLetters(ctx context.Context, letters []model.Letter) []*LetterResult {
	out := make([]*LetterResult, len(letters))
	if len(letters) == 0 {
		return out
	}

	pool := NewPoolWithContext(ctx, b.concurrency)
	pool.Start()

	for i, letter := range letters {
		job := &LetterJob{
			Index:     i,
			Letter:    letter,
			Processor: b.processor,
			Timeout:   b.timeout,
		}
		if !pool.Submit(job) {
			break
		}
	}

	for _, result := range pool.Wait() {
		switch r := result.(type) {
		case *LetterResult:
			out[r.Index] = r
		case *PanicResult:
			if job, ok := r.Job.(*LetterJob); ok {
				out[job.Index] = &LetterResult{Index: job.Index, Letter: job.Letter, Error: r.GetError()}
			}
		}
	}

	for i, r := range out {
		if r == nil {
			err := ctx.Err()
			if err == nil {
				err = errors.New("letter not processed")
			}
			out[i] = &LetterResult{Index: i, Letter: letters[i], Error: err}
			continue
		}
		switch {
		case r.Error != nil:
			b.log.Error("letter processing failed", logging.LetterID(r.Letter.ID), logging.Err(r.Error))
		case r.TimedOut:
			b.log.Warn("letter timed out, result discarded",
				logging.LetterID(r.Letter.ID), logging.Duration("timeout", b.timeout))
			if b.observer != nil {
				b.observer.ObserveTimeout()
			}
		}
	}

	return out
}

// ProcessDir reads every .txt letter of dir and processes them concurrently
func (b *BatchProcessor) ProcessDir(ctx context.Context, dir string) ([]*LetterResult, error) {
	letters, err := ReadLettersFromDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read letters: %w", err)
	}

	b.log.Info("processing letters", logging.String("dir", dir), logging.Int("letters", len(letters)),
		logging.Int("workers", b.concurrency))
	return b.ProcessLetters(ctx, letters), nil
}

// ReadLettersFromDir loads the .txt files of dir, sorted by name, as cleaned
// letters. The letter ID is the file name without extension.
func ReadLettersFromDir(dir string) ([]model.Letter, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".txt") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	letters := make([]model.Letter, 0, len(names))
	for _, name := range names {
		letter, err := ReadLetterFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		letters = append(letters, letter)
	}
	return letters, nil
}

// ReadLetterFile loads and cleans a single letter
func ReadLetterFile(path string) (model.Letter, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return model.Letter{}, fmt.Errorf("read letter: %w", err)
	}
	name := filepath.Base(path)
	return model.Letter{
		ID:   strings.TrimSuffix(name, filepath.Ext(name)),
		Name: name,
		Text: pipeline.CleanText(pipeline.RestoreLineBreaks(string(raw))),
	}, nil
}

// ReadURLsFromFile reads letter page URLs from a file (one per line)
func ReadURLsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var urls []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			urls = append(urls, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return urls, nil
}

// Summary aggregates the outcome of a batch
type Summary struct {
	Letters     int                       `json:"letters"`
	Errors      int                       `json:"errors"`
	Zones       int                       `json:"zones"`
	Demands     int                       `json:"demands"`
	Predictions int                       `json:"predictions"`
	Failures    map[model.FailureKind]int `json:"failures"`
}

// Summarize counts what a batch produced
func Summarize(results []*LetterResult) Summary {
	s := Summary{Letters: len(results), Failures: map[model.FailureKind]int{}}
	for _, r := range results {
		if r.Error != nil {
			s.Errors++
		}
		if r.Report == nil {
			continue
		}
		s.Zones += len(r.Report.Zones)
		s.Demands += len(r.Report.Demands)
		s.Predictions += len(r.Report.Predictions)
		for _, f := range r.Report.Failures {
			s.Failures[f.Kind]++
		}
	}
	return s
}
