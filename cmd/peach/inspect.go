package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/peachbot/peachbot/pkg/srv"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List conversation sessions for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		d := buildDeps(ctx)
		defer srv.CloseServices(ctx, d.cleanups)

		sessions, err := d.sessions.ListByUser(ctx, chatUserID)
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}
		if len(sessions) == 0 {
			fmt.Println("no sessions")
			return nil
		}
		for _, s := range sessions {
			fmt.Printf("%s  %-20s  %d turns  updated %s\n",
				s.ID, s.Title, s.MessageCount, s.UpdatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

func init() {
	sessionsCmd.Flags().StringVarP(&chatUserID, "user", "u", "local", "user id")
	rootCmd.AddCommand(sessionsCmd)
}
