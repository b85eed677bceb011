package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/feedbreak/feedbreak/internal/llm"
	"github.com/feedbreak/feedbreak/internal/store"
	"github.com/feedbreak/feedbreak/internal/ui/theme"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect question generation and answer evaluation calls",
}

var llmEventsCmd = &cobra.Command{
	Use:     "events",
	Aliases: []string{"list"},
	Short:   "List recent LLM calls, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")
		failedOnly, _ := cmd.Flags().GetBool("failed")

		repo, done, err := openEventRepo(cmd)
		if err != nil {
			return err
		}
		defer done()

		// The repo cannot filter, so fetch everything when a filter is set
		// and apply the limit afterwards.
		opts := store.QueryOpts{Limit: limit}
		if purpose != "" || failedOnly {
			opts.Limit = 0
		}
		events, err := repo.QueryLLMEvents(cmd.Context(), opts)
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}

		var shown []store.LLMRequestEvent
		for _, e := range events {
			if (purpose != "" && e.Purpose != purpose) || (failedOnly && e.Success) {
				continue
			}
			shown = append(shown, e)
			if limit > 0 && len(shown) == limit {
				break
			}
		}
		if len(shown) == 0 {
			fmt.Println(theme.Hint.Render("No matching LLM calls."))
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tWHEN\tPURPOSE\tMODEL\tTOKENS\tMS\t")
		for _, e := range shown {
			status := theme.Correct.Render("ok")
			if !e.Success {
				status = theme.Incorrect.Render("failed")
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d/%d\t%d\t%s\n",
				e.ID, e.Timestamp.Local().Format("01-02 15:04:05"), e.Purpose, clip(e.Model, 28),
				e.InputTokens, e.OutputTokens, e.LatencyMs, status)
		}
		return w.Flush()
	},
}

var llmShowCmd = &cobra.Command{
	Use:     "show <id>",
	Aliases: []string{"view"},
	Short:   "Show the prompt and output of one LLM call",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("event id must be a number, got %q", args[0])
		}

		repo, done, err := openEventRepo(cmd)
		if err != nil {
			return err
		}
		defer done()

		e, err := repo.GetLLMEvent(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		if e == nil {
			return fmt.Errorf("no LLM event %d", id)
		}

		fmt.Println(theme.Field("Event", e.ID))
		fmt.Println(theme.Field("When", e.Timestamp.Local().Format("2006-01-02 15:04:05")))
		fmt.Println(theme.Field("Purpose", e.Purpose))
		fmt.Println(theme.Field("Provider", e.Provider+" / "+e.Model))
		fmt.Println(theme.Field("Tokens", fmt.Sprintf("%d in, %d out", e.InputTokens, e.OutputTokens)))
		if usd, ok := llm.EstimateCost(e.Model, llm.Usage{InputTokens: e.InputTokens, OutputTokens: e.OutputTokens}); ok {
			fmt.Println(theme.Field("Cost", usdString(usd)))
		}
		fmt.Println(theme.Field("Latency", fmt.Sprintf("%dms", e.LatencyMs)))
		if e.Success {
			fmt.Println(theme.Field("Result", theme.Correct.Render("ok")))
		} else {
			fmt.Println(theme.Field("Result", theme.Incorrect.Render(e.ErrorMessage)))
		}

		fmt.Println()
		fmt.Println(theme.Title.Render("Prompt"))
		fmt.Println(theme.Card.Render(orNone(strings.TrimSpace(e.RequestBody))))
		fmt.Println(theme.Title.Render("Output"))
		fmt.Println(theme.Card.Render(orNone(strings.TrimSpace(e.ResponseBody))))
		return nil
	},
}

var llmUsageCmd = &cobra.Command{
	Use:     "usage",
	Aliases: []string{"stats"},
	Short:   "Summarize token usage per purpose and estimated cost per model",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, done, err := openEventRepo(cmd)
		if err != nil {
			return err
		}
		defer done()

		ctx := cmd.Context()
		byPurpose, err := repo.LLMUsageByPurpose(ctx)
		if err != nil {
			return fmt.Errorf("usage by purpose: %w", err)
		}
		if len(byPurpose) == 0 {
			fmt.Println(theme.Hint.Render("No LLM calls recorded yet."))
			return nil
		}
		byModel, err := repo.LLMUsageByModel(ctx)
		if err != nil {
			return fmt.Errorf("usage by model: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, theme.Title.Render("By purpose"))
		w := tabwriter.NewWriter(out, 0, 2, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "PURPOSE\tCALLS\tIN\tOUT\tAVG MS\t")
		for _, u := range byPurpose {
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t\n", u.Purpose, u.Calls, u.InputTokens, u.OutputTokens, u.AvgLatencyMs)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Fprintln(out)
		fmt.Fprintln(out, theme.Title.Render("By model"))
		w = tabwriter.NewWriter(out, 0, 2, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "MODEL\tCALLS\tIN\tOUT\tCOST\t")
		var total float64
		var unpriced []string
		for _, u := range byModel {
			cost := "?"
			if usd, ok := llm.EstimateCost(u.Model, llm.Usage{InputTokens: u.InputTokens, OutputTokens: u.OutputTokens}); ok {
				total += usd
				cost = usdString(usd)
			} else {
				unpriced = append(unpriced, u.Model)
			}
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\t\n", clip(u.Model, 32), u.Calls, u.InputTokens, u.OutputTokens, cost)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Fprintln(out)
		fmt.Fprintln(out, theme.Field("Total cost", usdString(total)))
		if len(unpriced) > 0 {
			fmt.Fprintln(out, theme.Warning.Render("No pricing for: "+strings.Join(unpriced, ", ")))
		}
		return nil
	},
}

// openEventRepo opens the database named by --db. Call done when finished.
func openEventRepo(cmd *cobra.Command) (repo store.EventRepo, done func(), err error) {
	path, err := resolveDBPath(cmd)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return s.EventRepo(), func() { s.Close() }, nil
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func usdString(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func orNone(s string) string {
	if s == "" {
		return theme.Hint.Render("(not captured)")
	}
	return s
}

func init() {
	llmEventsCmd.Flags().IntP("limit", "n", 20, "Number of calls to show")
	llmEventsCmd.Flags().StringP("purpose", "p", "", "Only show question-gen or answer-eval calls")
	llmEventsCmd.Flags().Bool("failed", false, "Only show failed calls")

	llmCmd.AddCommand(llmEventsCmd, llmShowCmd, llmUsageCmd)
}
