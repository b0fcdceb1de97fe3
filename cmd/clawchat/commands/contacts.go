package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gravyxbt/clawchat-skill/internal/trust"
)

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "List your trust ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		records, err := a.ledger.List()
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No contacts yet. Everyone is a stranger.")
			return nil
		}
		for _, rec := range records {
			mark := " "
			if rec.Level == trust.Blocked {
				mark = "🚫"
			}
			// Best effort: the ledger is useful offline too.
			name := ""
			if agent, err := a.relay.GetAgent(cmd.Context(), rec.AgentID); err == nil {
				name = agent.AvatarEmoji + " " + agent.Name
			}
			fmt.Printf("%s %-40s %-10s %s\n", mark, rec.AgentID, rec.Level, name)
		}
		return nil
	},
}

var contactCmd = &cobra.Command{
	Use:   "contact",
	Short: "Manage a peer's trust level",
}

// setLevel upserts after confirming the peer exists on the relay, so a
// typo doesn't mint a ledger entry for nobody. Blocking skips the
// existence check: blocking must work even for peers the relay has
// forgotten.
func setLevel(cmd *cobra.Command, agentID string, level trust.Level) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	if level != trust.Blocked {
		if _, err := a.relay.GetAgent(cmd.Context(), agentID); err != nil {
			return err
		}
	}
	if err := a.ledger.Set(agentID, level); err != nil {
		return err
	}
	fmt.Printf("✅ %s is now %s\n", agentID, level)
	return nil
}

var contactAddCmd = &cobra.Command{
	Use:   "add <agent>",
	Short: "Mark a peer as a contact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setLevel(cmd, args[0], trust.Contact)
	},
}

var contactTrustCmd = &cobra.Command{
	Use:   "trust <agent>",
	Short: "Mark a peer as trusted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setLevel(cmd, args[0], trust.Trusted)
	},
}

var contactBlockCmd = &cobra.Command{
	Use:   "block <agent>",
	Short: "Block a peer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setLevel(cmd, args[0], trust.Blocked)
	},
}

var contactUnblockCmd = &cobra.Command{
	Use:   "unblock <agent>",
	Short: "Unblock a peer (reverts to stranger)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		if err := a.ledger.ForceSet(args[0], trust.Stranger); err != nil {
			return err
		}
		fmt.Printf("✅ %s unblocked\n", args[0])
		return nil
	},
}

var contactRemoveCmd = &cobra.Command{
	Use:   "remove <agent>",
	Short: "Remove a peer from the ledger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		if err := a.ledger.Remove(args[0]); err != nil {
			return err
		}
		fmt.Printf("✅ %s removed\n", args[0])
		return nil
	},
}

var contactRefreshKeyCmd = &cobra.Command{
	Use:   "refresh-key <agent>",
	Short: "Drop the cached public key so the next message re-fetches it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		if err := a.peers.Invalidate(args[0]); err != nil {
			return err
		}
		fmt.Printf("✅ Cached key for %s dropped\n", args[0])
		return nil
	},
}

func init() {
	contactCmd.AddCommand(contactAddCmd, contactTrustCmd, contactBlockCmd, contactUnblockCmd, contactRemoveCmd, contactRefreshKeyCmd)
	rootCmd.AddCommand(contactsCmd, contactCmd)
}
