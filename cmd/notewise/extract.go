package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/notewise/internal/output"
	"github.com/jackzampolin/notewise/internal/report"
	"github.com/jackzampolin/notewise/internal/svcctx"
)

var (
	extractFlags  sourceFlags
	extractXLSX   string
	extractExport bool
)

type extractOutput struct {
	Sources []sourceReport `json:"sources" yaml:"sources"`
	Summary batchSummary   `json:"summary" yaml:"summary"`
}

var extractCmd = &cobra.Command{
	Use:   "extract [files...]",
	Short: "Extract structured notes from documents",
	Long: `Extract structured notes from term sheets, emails, web pages, PDFs and
screenshots.

Each document is sent to the inference service once. Records that fail
validation are listed under "invalid" with the reasons and the record as it
was returned. A document whose call failed is listed with its error and the
command exits non-zero after printing everything else.

Examples:
  notewise extract sheet.pdf email.txt
  notewise extract --text "UBS Phoenix on AAPL/MSFT, 8% p.a., 60% barrier"
  pbpaste | notewise extract - -o json
  notewise extract *.png --retries 2 --xlsx notes.xlsx`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := svcctx.ConfigFrom(ctx).Get()

		sources, err := extractFlags.sources(args, cmd.InOrStdin())
		if err != nil {
			return err
		}
		opts, err := extractFlags.batchOptions(cfg)
		if err != nil {
			return err
		}

		client, err := llmClient(ctx)
		if err != nil {
			return err
		}
		extractor, err := newExtractor(ctx, client)
		if err != nil {
			return err
		}

		items := extractor.RunBatch(ctx, sources, opts)
		reports, summary := summarize(items)

		path := extractXLSX
		if path == "" && extractExport {
			h := svcctx.HomeFrom(ctx)
			if err := h.EnsureExists(); err != nil {
				return err
			}
			path = h.ExportPath("notes", time.Now())
		}
		if path != "" {
			if err := report.Write(path, reportEntries(items)); err != nil {
				return err
			}
			summary.Workbook = path
		}

		if err := output.Print(extractOutput{Sources: reports, Summary: summary}); err != nil {
			return err
		}
		return failedError(summary)
	},
}

func init() {
	extractFlags.register(extractCmd)
	extractCmd.Flags().StringVar(&extractXLSX, "xlsx", "", "also write a spreadsheet to this path")
	extractCmd.Flags().BoolVar(&extractExport, "export", false, "also write a spreadsheet to the home exports directory")
}
