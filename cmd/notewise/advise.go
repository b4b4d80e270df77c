package main

import (
	"errors"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jackzampolin/notewise/internal/advisor"
	"github.com/jackzampolin/notewise/internal/notes"
	"github.com/jackzampolin/notewise/internal/output"
	"github.com/jackzampolin/notewise/internal/svcctx"
)

var (
	adviseFlags        sourceFlags
	adviseNoQuestions  bool
	adviseNoRanking    bool
	adviseRisk         string
	adviseTargetReturn float64
	adviseMinBarrier   float64
)

type adviseOutput struct {
	Sources   []sourceReport         `json:"sources" yaml:"sources"`
	Summary   batchSummary           `json:"summary" yaml:"summary"`
	Profile   *notes.InvestorProfile `json:"profile,omitempty" yaml:"profile,omitempty"`
	Questions string                 `json:"questions,omitempty" yaml:"questions,omitempty"`
	Ranking   string                 `json:"ranking,omitempty" yaml:"ranking,omitempty"`
}

var adviseCmd = &cobra.Command{
	Use:   "advise [files...]",
	Short: "Extract notes and ask for discovery questions and a ranking",
	Long: `Extract structured notes from documents, then ask the inference service
for discovery questions about them and for a risk-adjusted ranking against
the investor profile.

The profile comes from the profile section of the config; the flags below
override single fields. The advice is model output and is printed as is.

Examples:
  notewise advise sheet1.pdf sheet2.pdf
  notewise advise --text "..." --risk Conservative --target-return 0.07
  notewise advise notes/*.txt --no-questions`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := svcctx.ConfigFrom(ctx).Get()

		profile := cfg.Profile.InvestorProfile()
		if cmd.Flags().Changed("risk") {
			profile.RiskAppetite = adviseRisk
		}
		if cmd.Flags().Changed("target-return") {
			profile.TargetAnnualReturn = adviseTargetReturn
		}
		if cmd.Flags().Changed("min-barrier") {
			profile.MinAcceptableBarrier = adviseMinBarrier
		}
		if err := profile.Validate(); err != nil {
			return err
		}

		sources, err := adviseFlags.sources(args, cmd.InOrStdin())
		if err != nil {
			return err
		}
		opts, err := adviseFlags.batchOptions(cfg)
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
		adv, err := newAdvisor(ctx, client)
		if err != nil {
			return err
		}

		items := extractor.RunBatch(ctx, sources, opts)
		reports, summary := summarize(items)
		out := adviseOutput{Sources: reports, Summary: summary, Profile: &profile}

		found := allNotes(items)
		if len(found) == 0 {
			if err := output.Print(out); err != nil {
				return err
			}
			return errors.Join(advisor.ErrNoNotes, failedError(summary))
		}

		g, gctx := errgroup.WithContext(ctx)
		if !adviseNoQuestions {
			g.Go(func() error {
				text, err := adv.DiscoveryQuestions(gctx, found)
				out.Questions = text
				return err
			})
		}
		if !adviseNoRanking {
			g.Go(func() error {
				text, err := adv.RankAndOptimize(gctx, found, &profile)
				out.Ranking = text
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		if err := output.Print(out); err != nil {
			return err
		}
		return failedError(summary)
	},
}

func init() {
	adviseFlags.register(adviseCmd)
	adviseCmd.Flags().BoolVar(&adviseNoQuestions, "no-questions", false, "skip discovery questions")
	adviseCmd.Flags().BoolVar(&adviseNoRanking, "no-ranking", false, "skip the ranking")
	adviseCmd.Flags().StringVar(&adviseRisk, "risk", "", "risk appetite: Conservative, Moderate or Aggressive")
	adviseCmd.Flags().Float64Var(&adviseTargetReturn, "target-return", 0, "target annual return as a fraction, e.g. 0.07")
	adviseCmd.Flags().Float64Var(&adviseMinBarrier, "min-barrier", 0, "lowest acceptable barrier as a fraction, e.g. 0.6")
}
