package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/notewise/internal/advisor"
	"github.com/jackzampolin/notewise/internal/config"
	"github.com/jackzampolin/notewise/internal/extract"
	"github.com/jackzampolin/notewise/internal/notes"
	"github.com/jackzampolin/notewise/internal/output"
	"github.com/jackzampolin/notewise/internal/svcctx"
)

var chatFlags sourceFlags

const chatHelp = `Paste a term sheet or describe a note to extract it. Once notes are loaded,
anything else you type is a question about them.

  /load <file>   extract notes from a file and add them
  /notes         print the loaded notes
  /questions     ask for discovery questions
  /rank          ask for a ranking against the configured profile
  /reset         forget the conversation, keep the notes
  /clear         forget the notes and the conversation
  /quit          leave`

var chatCmd = &cobra.Command{
	Use:   "chat [files...]",
	Short: "Interactive questions about extracted notes",
	Long: `Start an interactive session about structured notes.

Files given on the command line are extracted first. Until some notes are
loaded, each line you enter is treated as a document to extract. Earlier
questions and answers are sent along with each new question.

Edits to the config file take effect on the next turn.

` + chatHelp,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		mgr := svcctx.ConfigFrom(ctx)
		registry := svcctx.RegistryFrom(ctx)
		logger := svcctx.LoggerFrom(ctx)

		c := &chat{out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr()}
		if err := c.connect(ctx); err != nil {
			return err
		}

		mgr.OnChange(func(cfg *config.Config) {
			registry.Reload(cfg.ToProviderRegistryConfig())
			c.stale.Store(true)
		})
		if mgr.ConfigFile() != "" {
			mgr.WatchConfig()
			logger.Debug("watching config", "file", mgr.ConfigFile())
		}

		if len(args) > 0 || chatFlags.text != "" {
			sources, err := chatFlags.sources(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if err := c.load(ctx, sources); err != nil {
				return err
			}
		}

		fmt.Fprintln(c.out, "Type /help for commands.")
		return c.loop(ctx, cmd.InOrStdin())
	},
}

func init() {
	chatFlags.register(chatCmd)
}

// chat is the state of one interactive session.
type chat struct {
	out    io.Writer
	errOut io.Writer

	extractor *extract.Extractor
	advisor   *advisor.Advisor
	session   *advisor.Session

	// stale is set when the config changed and clients must be rebuilt.
	stale atomic.Bool
}

// connect (re)builds the extractor and advisor from the current config.
func (c *chat) connect(ctx context.Context) error {
	client, err := llmClient(ctx)
	if err != nil {
		return err
	}
	ex, err := newExtractor(ctx, client)
	if err != nil {
		return err
	}
	adv, err := newAdvisor(ctx, client)
	if err != nil {
		return err
	}
	c.extractor = ex
	c.advisor = adv
	if c.session == nil {
		c.session = adv.NewSession(nil)
	} else {
		c.session.SetAdvisor(adv)
	}
	return nil
}

func (c *chat) loop(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for {
		fmt.Fprint(c.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(c.out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			return nil
		}

		if c.stale.Swap(false) {
			if err := c.connect(ctx); err != nil {
				fmt.Fprintf(c.errOut, "config reload: %v\n", err)
			}
		}
		if err := c.handle(ctx, line); err != nil {
			fmt.Fprintf(c.errOut, "error: %v\n", err)
		}
	}
}

func (c *chat) handle(ctx context.Context, line string) error {
	cmd, rest, _ := strings.Cut(line, " ")
	switch cmd {
	case "/help":
		fmt.Fprintln(c.out, chatHelp)
		return nil
	case "/notes":
		return output.Write(c.out, output.GetFormat(), c.session.Notes())
	case "/reset":
		c.session.Reset()
		fmt.Fprintln(c.out, "Conversation cleared.")
		return nil
	case "/clear":
		c.session = c.advisor.NewSession(nil)
		fmt.Fprintln(c.out, "Notes and conversation cleared.")
		return nil
	case "/load":
		src, err := extract.LoadSource(strings.TrimSpace(rest))
		if err != nil {
			return err
		}
		return c.load(ctx, []extract.Source{src})
	case "/questions":
		text, err := c.advisor.DiscoveryQuestions(ctx, c.session.Notes())
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, text)
		return nil
	case "/rank":
		profile := svcctx.ConfigFrom(ctx).Get().Profile.InvestorProfile()
		text, err := c.advisor.RankAndOptimize(ctx, c.session.Notes(), &profile)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, text)
		return nil
	}
	if strings.HasPrefix(cmd, "/") {
		return fmt.Errorf("unknown command %s (try /help)", cmd)
	}

	if len(c.session.Notes()) == 0 {
		src := extract.TextSource(line)
		src.Name = "input"
		return c.load(ctx, []extract.Source{src})
	}

	answer, err := c.session.Ask(ctx, line)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, answer)
	return nil
}

// load extracts sources and adds their notes. The conversation restarts
// because earlier answers were about a different set of notes.
func (c *chat) load(ctx context.Context, sources []extract.Source) error {
	opts, err := chatFlags.batchOptions(svcctx.ConfigFrom(ctx).Get())
	if err != nil {
		return err
	}
	items := c.extractor.RunBatch(ctx, sources, opts)

	for _, item := range items {
		if item.Err != nil {
			fmt.Fprintf(c.errOut, "%s: %v\n", item.Source, item.Err)
			continue
		}
		for _, o := range item.Result.Errors() {
			fmt.Fprintf(c.errOut, "%s: record %d skipped: %v\n", item.Source, o.Index+1, o.Err)
		}
	}

	found := allNotes(items)
	if len(found) == 0 {
		fmt.Fprintln(c.out, "No notes found.")
		return nil
	}

	merged := append(append([]notes.StructuredNote(nil), c.session.Notes()...), found...)
	c.session = c.advisor.NewSession(merged)
	for i, n := range found {
		fmt.Fprintln(c.out, n.Summary(len(merged)-len(found)+i+1))
	}
	return nil
}
