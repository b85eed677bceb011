package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/feedbreak/feedbreak/internal/checkpoint"
	"github.com/feedbreak/feedbreak/internal/store"
	"github.com/feedbreak/feedbreak/internal/ui/theme"
)

var answerCmd = &cobra.Command{
	Use:   "answer <device-id> <question-id> [text...]",
	Short: "Submit an answer to a checkpoint question",
	Long: `Submit a text answer, which is scored immediately, or an audio reference
with --audio, which stays pending until corrected with --fix.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd, "dev")
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		videoID, _ := cmd.Flags().GetString("video")
		audio, _ := cmd.Flags().GetString("audio")
		fix, _ := cmd.Flags().GetBool("fix")
		text := strings.Join(args[2:], " ")

		var sub *checkpoint.Submission
		switch {
		case fix:
			// args[1] is the response id when correcting.
			sub, err = a.service.CorrectAnswer(ctx, args[0], args[1], text)
		case audio != "":
			sub, err = a.service.SubmitAudioAnswer(ctx, checkpoint.AnswerInput{DeviceID: args[0], QuestionID: args[1], VideoID: videoID}, audio)
		default:
			sub, err = a.service.SubmitTextAnswer(ctx, checkpoint.AnswerInput{DeviceID: args[0], QuestionID: args[1], VideoID: videoID}, text)
		}
		if err != nil {
			return err
		}
		printResponse(sub)
		return nil
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate <device-id> <video-id>",
	Short: "Generate a personalised question for a learner and video",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd, "dev")
		if err != nil {
			return err
		}
		defer a.Close()

		out, err := a.service.GenerateQuestion(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		if out.Fallback {
			fmt.Println(theme.Warning.Render("Generators unavailable, stored the fallback question."))
		}
		printQuestion(out.Question)
		fmt.Println(theme.Field("Source", out.Question.GeneratedBy))
		return nil
	},
}

var scorePendingCmd = &cobra.Command{
	Use:   "score-pending",
	Short: "Evaluate text responses that are still pending",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd, "dev")
		if err != nil {
			return err
		}
		defer a.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		sum, err := a.service.ScorePending(cmd.Context(), limit)
		if err != nil {
			return err
		}
		fmt.Println(theme.Field("Scored", sum.Scored))
		fmt.Println(theme.Field("Skipped", sum.Skipped))
		fmt.Println(theme.Field("Degraded", sum.Degraded))
		return nil
	},
}

func printResponse(sub *checkpoint.Submission) {
	r := sub.Response
	fmt.Println(theme.Field("Response ID", r.ID))
	fmt.Println(theme.Field("Status", r.Status))
	if r.Status == store.StatusPending || r.Evaluation == nil {
		fmt.Println(theme.Hint.Render("Awaiting evaluation."))
		return
	}
	ev := r.Evaluation
	fmt.Println(theme.Field("Score", fmt.Sprintf("%.2f", ev.Score)) + "  " + theme.Verdict(ev.Passed))
	if len(ev.ConceptsIdentified) > 0 {
		fmt.Println(theme.Field("Covered", strings.Join(ev.ConceptsIdentified, ", ")))
	}
	if len(ev.ConceptsMissing) > 0 {
		fmt.Println(theme.Field("Missing", strings.Join(ev.ConceptsMissing, ", ")))
	}
	if ev.Feedback != "" {
		fmt.Println(theme.Card.Render(ev.Feedback))
	}
	if sub.Degraded {
		fmt.Println(theme.Warning.Render("The evaluator was unavailable; this is a provisional score."))
	}
}

func init() {
	answerCmd.Flags().String("video", "", "Video the question was asked for")
	answerCmd.Flags().String("audio", "", "Audio reference instead of a text answer")
	answerCmd.Flags().Bool("fix", false, "Correct an earlier response; the second argument is the response id")
	scorePendingCmd.Flags().IntP("limit", "n", 50, "Maximum responses to evaluate")
}
