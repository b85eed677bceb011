package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/feedbreak/feedbreak/internal/progress"
	"github.com/feedbreak/feedbreak/internal/store"
	"github.com/feedbreak/feedbreak/internal/ui/theme"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Create, update or show learners",
}

var userSetCmd = &cobra.Command{
	Use:   "set <device-id>",
	Short: "Create or update the learner for a device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd, "dev")
		if err != nil {
			return err
		}
		defer a.Close()

		name, _ := cmd.Flags().GetString("name")
		age, _ := cmd.Flags().GetInt("age")
		interests, _ := cmd.Flags().GetStringSlice("interests")
		education, _ := cmd.Flags().GetString("education")
		interval, _ := cmd.Flags().GetInt("interval")
		if cmd.Flags().Changed("interval") && interval <= 0 {
			return fmt.Errorf("--interval must be positive, got %d", interval)
		}

		u, created, err := a.service.UpsertUser(cmd.Context(), store.UserProfile{
			DeviceID:           args[0],
			Name:               name,
			Age:                age,
			Interests:          interests,
			EducationLevel:     education,
			CheckpointInterval: interval,
		})
		if err != nil {
			return err
		}
		if created {
			fmt.Println(theme.Correct.Render("Created learner"))
		} else {
			fmt.Println(theme.Title.Render("Updated learner"))
		}
		printUser(u)
		return nil
	},
}

var userShowCmd = &cobra.Command{
	Use:   "show <device-id>",
	Short: "Show a learner's profile and checkpoint state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd, "dev")
		if err != nil {
			return err
		}
		defer a.Close()

		u, err := a.service.GetUser(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printUser(u)
		return nil
	},
}

func printUser(u *store.User) {
	fmt.Println(theme.Field("ID", u.ID))
	fmt.Println(theme.Field("Device", u.DeviceID))
	if u.Name != "" {
		fmt.Println(theme.Field("Name", u.Name))
	}
	if u.Age > 0 {
		fmt.Println(theme.Field("Age", u.Age))
	}
	if len(u.Interests) > 0 {
		fmt.Println(theme.Field("Interests", strings.Join(u.Interests, ", ")))
	}
	if u.EducationLevel != "" {
		fmt.Println(theme.Field("Education", u.EducationLevel))
	}
	fmt.Println(theme.Field("Interval", u.CheckpointInterval))
	fmt.Println(theme.Field("Watched", u.WatchedCount))
	fmt.Println(theme.Field("State", progress.ParseState(u.CheckpointState)))
}

func init() {
	userSetCmd.Flags().String("name", "", "Display name")
	userSetCmd.Flags().Int("age", 0, "Age in years")
	userSetCmd.Flags().StringSlice("interests", nil, "Comma-separated interests")
	userSetCmd.Flags().String("education", "", "Education level")
	userSetCmd.Flags().Int("interval", 0, "Videos between checkpoints (default 3)")

	userCmd.AddCommand(userSetCmd)
	userCmd.AddCommand(userShowCmd)
}
