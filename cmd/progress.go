package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/feedbreak/feedbreak/internal/store"
	"github.com/feedbreak/feedbreak/internal/ui/theme"
)

var watchCmd = &cobra.Command{
	Use:   "watch <device-id> <video-id>",
	Short: "Record a watched video and report whether a checkpoint is due",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd, "dev")
		if err != nil {
			return err
		}
		defer a.Close()

		incomplete, _ := cmd.Flags().GetBool("incomplete")
		res, err := a.service.ReportWatch(cmd.Context(), args[0], args[1], !incomplete)
		if err != nil {
			return err
		}

		fmt.Println(theme.Field("Watched", res.WatchedCount))
		fmt.Println(theme.Field("Interval", res.Interval))
		if !res.Counted {
			fmt.Println(theme.Hint.Render("Repeat watch, count unchanged."))
		}
		fmt.Println(theme.Field("State", res.State))
		if res.ShouldTriggerCheckpoint {
			fmt.Println()
			fmt.Println(theme.Title.Render("Checkpoint!"))
			if res.Question != nil {
				printQuestion(res.Question)
			} else {
				fmt.Println(theme.Hint.Render("Every question of this content is answered."))
			}
		}
		return nil
	},
}

var nextCmd = &cobra.Command{
	Use:   "next <device-id>",
	Short: "Show the next unanswered checkpoint question",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd, "dev")
		if err != nil {
			return err
		}
		defer a.Close()

		contentID, _ := cmd.Flags().GetString("content")
		q, err := a.service.NextQuestion(cmd.Context(), args[0], contentID)
		if err != nil {
			return err
		}
		if q == nil {
			fmt.Println(theme.Hint.Render("All questions answered."))
			return nil
		}
		printQuestion(q)
		return nil
	},
}

var countCmd = &cobra.Command{
	Use:   "count <device-id>",
	Short: "Show how many videos a learner has watched",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd, "dev")
		if err != nil {
			return err
		}
		defer a.Close()

		contentID, _ := cmd.Flags().GetString("content")
		n, err := a.service.WatchCount(cmd.Context(), args[0], contentID)
		if err != nil {
			return err
		}
		state, err := a.service.CheckpointState(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(theme.Field("Watched", n))
		fmt.Println(theme.Field("State", state))
		return nil
	},
}

func printQuestion(q *store.Question) {
	body := q.Prompt
	if len(q.ExpectedConcepts) > 0 {
		body += "\n" + theme.Hint.Render(fmt.Sprintf("concepts: %v", q.ExpectedConcepts))
	}
	fmt.Println(theme.Card.Render(body))
	fmt.Println(theme.Field("Question ID", q.ID))
}

func init() {
	watchCmd.Flags().Bool("incomplete", false, "Report the video as not watched to the end")
	nextCmd.Flags().String("content", "", "Restrict to one content")
	countCmd.Flags().String("content", "", "Count watches within one content")
}
