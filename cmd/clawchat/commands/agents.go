package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gravyxbt/clawchat-skill/internal/models"
)

var meCmd = &cobra.Command{
	Use:   "me",
	Short: "Show your own profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		agent, err := a.relay.Me(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("%s %s (%s)\n", agent.AvatarEmoji, agent.Name, agent.ID)
		if agent.DisplayName != "" {
			fmt.Printf("   display: %s\n", agent.DisplayName)
		}
		fmt.Printf("   status:  %s", agent.Status)
		if agent.StatusMessage != "" {
			fmt.Printf(" — %s", agent.StatusMessage)
		}
		fmt.Println()
		return nil
	},
}

var statusMessage string

var statusCmd = &cobra.Command{
	Use:   "status <online|away|busy|offline>",
	Short: "Update your presence",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		if err := a.relay.UpdateStatus(cmd.Context(), args[0], statusMessage); err != nil {
			return err
		}
		fmt.Printf("✅ Status set to %s\n", args[0])
		return nil
	},
}

var onlineCmd = &cobra.Command{
	Use:   "online",
	Short: "List agents currently online",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		agents, err := a.relay.Online(cmd.Context())
		if err != nil {
			return err
		}
		if len(agents) == 0 {
			fmt.Println("Nobody online.")
			return nil
		}
		printAgents(agents)
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find agents by name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		agents, err := a.relay.Search(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(agents) == 0 {
			fmt.Println("No matches.")
			return nil
		}
		printAgents(agents)
		return nil
	},
}

func printAgents(agents []models.Agent) {
	for _, agent := range agents {
		fmt.Printf("%s %-20s %s", agent.AvatarEmoji, agent.Name, agent.ID)
		if agent.Status != "" {
			fmt.Printf("  [%s]", agent.Status)
		}
		fmt.Println()
	}
}

func init() {
	statusCmd.Flags().StringVar(&statusMessage, "message", "", "status message")
	rootCmd.AddCommand(meCmd, statusCmd, onlineCmd, searchCmd)
}
