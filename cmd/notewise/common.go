package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/notewise/internal/advisor"
	"github.com/jackzampolin/notewise/internal/config"
	"github.com/jackzampolin/notewise/internal/extract"
	"github.com/jackzampolin/notewise/internal/notes"
	"github.com/jackzampolin/notewise/internal/providers"
	"github.com/jackzampolin/notewise/internal/report"
	"github.com/jackzampolin/notewise/internal/svcctx"
)

// sourceFlags are shared by every command that extracts documents.
type sourceFlags struct {
	text    string
	workers int
	retries int
	timeout string
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.text, "text", "", "extract from this text instead of, or as well as, files")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "files extracted in parallel (default: defaults.max_workers)")
	cmd.Flags().IntVar(&f.retries, "retries", -1, "retries of retryable failures (default: defaults.retries)")
	cmd.Flags().StringVar(&f.timeout, "timeout", "", "deadline per document, retries included, e.g. 90s (default: defaults.timeout_seconds)")
}

// batchOptions merges flags over the configured defaults.
func (f *sourceFlags) batchOptions(cfg *config.Config) (extract.BatchOptions, error) {
	opts := extract.BatchOptions{
		Workers: cfg.Defaults.MaxWorkers,
		Retries: cfg.Defaults.Retries,
		Timeout: cfg.Defaults.Timeout(),
	}
	if f.workers > 0 {
		opts.Workers = f.workers
	}
	if f.retries >= 0 {
		opts.Retries = f.retries
	}
	if f.timeout != "" {
		d, err := parseDuration(f.timeout)
		if err != nil {
			return opts, fmt.Errorf("invalid --timeout: %w", err)
		}
		opts.Timeout = d
	}
	return opts, nil
}

// sources loads every file argument; "-" reads text from stdin.
func (f *sourceFlags) sources(args []string, stdin io.Reader) ([]extract.Source, error) {
	var out []extract.Source
	for _, arg := range args {
		if arg == "-" {
			data, err := io.ReadAll(stdin)
			if err != nil {
				return nil, fmt.Errorf("failed to read stdin: %w", err)
			}
			src := extract.TextSource(string(data))
			src.Name = "stdin"
			out = append(out, src)
			continue
		}
		src, err := extract.LoadSource(arg)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	if strings.TrimSpace(f.text) != "" {
		src := extract.TextSource(f.text)
		src.Name = "text"
		out = append(out, src)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("nothing to extract: pass files, - for stdin, or --text")
	}
	return out, nil
}

// llmClient returns the client selected by --provider or the configured
// default.
func llmClient(ctx context.Context) (providers.LLMClient, error) {
	registry := svcctx.RegistryFrom(ctx)
	if registry == nil {
		return nil, fmt.Errorf("provider registry not initialized")
	}
	name := providerName
	if name == "" {
		name = svcctx.ConfigFrom(ctx).Get().Defaults.LLMProvider
	}
	return registry.GetLLM(name)
}

func newExtractor(ctx context.Context, client providers.LLMClient) (*extract.Extractor, error) {
	cfg := svcctx.ConfigFrom(ctx).Get()
	return extract.New(client, extract.Config{
		Model:       cfg.Extraction.Model,
		Temperature: cfg.Extraction.Temperature,
		MaxTokens:   cfg.Extraction.MaxTokens,
		Instruction: cfg.Extraction.Instruction,
		Prompts:     svcctx.PromptsFrom(ctx),
		Logger:      svcctx.LoggerFrom(ctx),
	})
}

func newAdvisor(ctx context.Context, client providers.LLMClient) (*advisor.Advisor, error) {
	cfg := svcctx.ConfigFrom(ctx).Get()
	return advisor.New(client, advisor.Config{
		Model:         cfg.Advisor.Model,
		Temperature:   cfg.Advisor.Temperature,
		MaxTokens:     cfg.Advisor.MaxTokens,
		Timeout:       cfg.Defaults.Timeout(),
		QuestionCount: cfg.Advisor.QuestionCount,
		Prompts:       svcctx.PromptsFrom(ctx),
		Logger:        svcctx.LoggerFrom(ctx),
	})
}

// sourceReport is the printed outcome of one document.
type sourceReport struct {
	Source    string                 `json:"source" yaml:"source"`
	RequestID string                 `json:"request_id,omitempty" yaml:"request_id,omitempty"`
	Model     string                 `json:"model,omitempty" yaml:"model,omitempty"`
	Attempts  int                    `json:"attempts" yaml:"attempts"`
	Notes     []notes.StructuredNote `json:"notes" yaml:"notes"`
	Invalid   []extract.Outcome      `json:"invalid,omitempty" yaml:"invalid,omitempty"`
	Error     string                 `json:"error,omitempty" yaml:"error,omitempty"`
}

type batchSummary struct {
	Sources  int    `json:"sources" yaml:"sources"`
	Notes    int    `json:"notes" yaml:"notes"`
	Invalid  int    `json:"invalid" yaml:"invalid"`
	Failed   int    `json:"failed" yaml:"failed"`
	Workbook string `json:"workbook,omitempty" yaml:"workbook,omitempty"`
}

func summarize(items []extract.Item) ([]sourceReport, batchSummary) {
	reports := lo.Map(items, func(item extract.Item, _ int) sourceReport {
		r := sourceReport{Source: item.Source, Attempts: item.Attempts, Notes: []notes.StructuredNote{}}
		if item.Err != nil {
			r.Error = item.Err.Error()
			return r
		}
		r.RequestID = item.Result.RequestID
		r.Model = item.Result.Model
		r.Notes = item.Result.Notes()
		r.Invalid = item.Result.Errors()
		return r
	})
	summary := batchSummary{Sources: len(items)}
	for _, r := range reports {
		summary.Notes += len(r.Notes)
		summary.Invalid += len(r.Invalid)
		if r.Error != "" {
			summary.Failed++
		}
	}
	return reports, summary
}

// allNotes flattens the bound notes of every successful item in order.
func allNotes(items []extract.Item) []notes.StructuredNote {
	return lo.FlatMap(items, func(item extract.Item, _ int) []notes.StructuredNote {
		return item.Result.Notes()
	})
}

func reportEntries(items []extract.Item) []report.Entry {
	return lo.Map(items, func(item extract.Item, _ int) report.Entry {
		return report.Entry{Source: item.Source, Result: item.Result, Err: item.Err}
	})
}

// failedError is returned after output is printed so the exit status shows
// that some documents could not be extracted.
func failedError(summary batchSummary) error {
	if summary.Failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d sources failed", summary.Failed, summary.Sources)
}
