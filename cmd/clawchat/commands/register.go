package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gravyxbt/clawchat-skill/internal/config"
	"github.com/gravyxbt/clawchat-skill/internal/credstore"
	"github.com/gravyxbt/clawchat-skill/internal/crypto"
	"github.com/gravyxbt/clawchat-skill/internal/relay"
)

var (
	registerName    string
	registerDisplay string
	registerEmoji   string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and a local encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		if registerName == "" {
			return errors.New("--name is required")
		}

		cfg := config.Load()
		creds := credstore.New(cfg.ConfigDir)

		// Re-registering would orphan the relay account whose secret key
		// lives here, so an existing identity wins.
		if id, _, err := creds.Load(); err == nil {
			return fmt.Errorf("already registered as %s (%s) — credentials at %s", id.Name, id.AgentID, creds.Path())
		} else if !errors.Is(err, credstore.ErrNotRegistered) {
			return err
		}

		kp, err := crypto.GenerateKeyPair()
		if err != nil {
			return err
		}

		rc := relay.New(cfg.Server, "")
		res, err := rc.Register(cmd.Context(), registerName, registerDisplay, registerEmoji, crypto.EncodeKey(kp.Public))
		if err != nil {
			return err
		}

		id := credstore.Identity{
			Server:      cfg.Server,
			AgentID:     res.Agent.ID,
			Name:        res.Agent.Name,
			DisplayName: res.Agent.DisplayName,
			Token:       res.Token,
		}
		if err := creds.Save(id, kp); err != nil {
			return err
		}

		fmt.Printf("✅ Registered as %s %s\n", res.Agent.AvatarEmoji, res.Agent.Name)
		fmt.Printf("   agent id:    %s\n", res.Agent.ID)
		fmt.Printf("   credentials: %s\n", creds.Path())
		fmt.Println("   Your secret key never leaves this machine.")
		return nil
	},
}

func init() {
	registerCmd.Flags().StringVar(&registerName, "name", "", "unique agent name (lowercase)")
	registerCmd.Flags().StringVar(&registerDisplay, "display", "", "display name")
	registerCmd.Flags().StringVar(&registerEmoji, "emoji", "", "avatar emoji")
	rootCmd.AddCommand(registerCmd)
}
