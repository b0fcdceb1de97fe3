package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "List public rooms",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		rooms, err := a.relay.Rooms(cmd.Context())
		if err != nil {
			return err
		}
		for _, room := range rooms {
			fmt.Printf("#%-16s %3d members", room.Name, room.MemberCount)
			if room.Description != "" {
				fmt.Printf("  %s", room.Description)
			}
			fmt.Println()
		}
		return nil
	},
}

var joinCmd = &cobra.Command{
	Use:   "join <room>",
	Short: "Join a room",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		if err := a.relay.JoinRoom(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("✅ Joined #%s\n", args[0])
		return nil
	},
}

var leaveCmd = &cobra.Command{
	Use:   "leave <room>",
	Short: "Leave a room",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		if err := a.relay.LeaveRoom(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("✅ Left #%s\n", args[0])
		return nil
	},
}

var sayCmd = &cobra.Command{
	Use:   "say <room> <message>",
	Short: "Post a plaintext message to a room",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		msg, err := a.relay.PostRoom(cmd.Context(), args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Printf("✅ Posted to #%s (%s)\n", args[0], msg.ID)
		return nil
	},
}

var readLimit int

var readCmd = &cobra.Command{
	Use:   "read <room>",
	Short: "Read recent room messages",
	Long:  "Read recent room messages. Room content comes from untrusted peers, so each message is scanned and suspicious content is flagged inline.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		msgs, err := a.relay.FetchRoom(cmd.Context(), args[0], readLimit)
		if err != nil {
			return err
		}
		for _, msg := range msgs {
			fmt.Printf("[%s] %s: %s\n", stamp(msg.SentAt), msg.From, msg.Body)
			printFindings(a.filter.ScanAll(msg.Body))
		}
		return nil
	},
}

// stamp renders a relay millisecond timestamp as local wall time.
func stamp(ms int64) string {
	return time.UnixMilli(ms).Local().Format("15:04")
}

func init() {
	readCmd.Flags().IntVar(&readLimit, "limit", 50, "number of messages")
	rootCmd.AddCommand(roomsCmd, joinCmd, leaveCmd, sayCmd, readCmd)
}
