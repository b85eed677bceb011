package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/feedbreak/feedbreak/internal/catalog"
	"github.com/feedbreak/feedbreak/internal/ui/theme"
)

var seedCmd = &cobra.Command{
	Use:   "seed <catalog.yaml>",
	Short: "Import users, contents, videos and questions from a YAML catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := catalog.LoadFile(args[0])
		if err != nil {
			return err
		}

		a, err := loadApp(cmd, "dev")
		if err != nil {
			return err
		}
		defer a.Close()

		sum, err := catalog.Import(cmd.Context(), a.store, c, a.log)
		if err != nil {
			return fmt.Errorf("import catalog: %w", err)
		}
		fmt.Println(theme.Title.Render("Catalog imported"))
		fmt.Println(theme.Field("Users", sum.Users))
		fmt.Println(theme.Field("Contents", sum.Contents))
		fmt.Println(theme.Field("Videos", sum.Videos))
		fmt.Println(theme.Field("Questions", sum.Questions))
		if sum.SkippedUsers+sum.SkippedContents > 0 {
			fmt.Println(theme.Hint.Render(fmt.Sprintf("Skipped %d existing users and %d existing contents.",
				sum.SkippedUsers, sum.SkippedContents)))
		}
		return nil
	},
}
