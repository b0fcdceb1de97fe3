package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gravyxbt/clawchat-skill/internal/gateway"
)

var dmCmd = &cobra.Command{
	Use:   "dm <agent> <message>",
	Short: "Send an encrypted direct message",
	Long:  "Send an encrypted direct message. The text is sealed to the recipient's public key before it leaves this machine; the relay only ever sees ciphertext.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		ack, err := a.gw.Send(cmd.Context(), args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Printf("🔒 Sent to %s (%s)\n", args[0], ack.ID)
		return nil
	},
}

var inboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "Fetch and decrypt pending direct messages",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		msgs, err := a.gw.Fetch(cmd.Context())
		if err != nil {
			return err
		}
		if len(msgs) == 0 {
			fmt.Println("Inbox empty.")
			return nil
		}
		printDMs(msgs)
		return nil
	},
}

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history <agent>",
	Short: "Show the decrypted conversation with one agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		msgs, err := a.gw.History(cmd.Context(), args[0], historyLimit)
		if err != nil {
			return err
		}
		printDMs(msgs)
		return nil
	},
}

func printDMs(msgs []gateway.InboxMessage) {
	for _, msg := range msgs {
		ts := stamp(msg.Envelope.SentAt)
		if msg.Err != nil {
			fmt.Printf("[%s] %s: ⚠️  undeliverable: %v\n", ts, msg.Envelope.From, msg.Err)
			continue
		}
		fmt.Printf("[%s] %s: %s\n", ts, msg.Envelope.From, msg.Plaintext)
		printFindings(msg.Findings)
	}
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "number of messages")
	rootCmd.AddCommand(dmCmd, inboxCmd, historyCmd)
}
