package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/peachbot/peachbot/internal/core"
	"github.com/peachbot/peachbot/internal/storage/sqlite"
	"github.com/peachbot/peachbot/pkg/log"
	"github.com/peachbot/peachbot/pkg/srv"
)

var (
	chatUserID    string
	chatSessionID string
	chatRoleID    string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Opens a terminal conversation loop. Commands inside the loop:
  /memories   show stored memories for this session
  /extract    extract memories from the buffered turns now
  /quit       leave the conversation`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		d := buildDeps(ctx)
		defer srv.CloseServices(ctx, d.cleanups)

		return runChat(ctx, d)
	},
}

func init() {
	chatCmd.Flags().StringVarP(&chatUserID, "user", "u", "local", "user id")
	chatCmd.Flags().StringVarP(&chatSessionID, "session", "s", "", "session id (new session when empty)")
	chatCmd.Flags().StringVarP(&chatRoleID, "role", "r", "", "persona role id")
	rootCmd.AddCommand(chatCmd)
}

func runChat(ctx context.Context, d *deps) error {
	logger := log.FromCtx(ctx)

	user, err := d.users.GetOrCreate(ctx, chatUserID, chatUserID)
	if err != nil {
		return fmt.Errorf("failed to resolve user: %w", err)
	}

	session, err := resolveSession(ctx, d, user.ID)
	if err != nil {
		return fmt.Errorf("failed to resolve session: %w", err)
	}

	persona := d.manager.Persona(chatRoleID)
	fmt.Printf("%s (session %s) — /memories /extract /quit\n", persona.Name, session.ID)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/quit", "/exit":
			return nil
		case "/memories":
			printMemories(ctx, d, user.ID, session.ID)
			continue
		case "/extract":
			d.manager.ForceExtract(ctx, user.ID, session.ID, chatRoleID)
			fmt.Println("（已触发记忆提取）")
			continue
		}

		reply, err := d.manager.Chat(ctx, user.ID, session.ID, chatRoleID, line, false)
		if err != nil {
			logger.Error().Err(err).Msg("chat turn failed")
			fmt.Println("（回复失败，请再试一次）")
			continue
		}
		fmt.Printf("%s: %s\n", persona.Name, reply)
	}
	return scanner.Err()
}

func resolveSession(ctx context.Context, d *deps, userID string) (core.Session, error) {
	if chatSessionID == "" {
		return d.sessions.Create(ctx, userID, "新对话", "")
	}

	session, err := d.sessions.Get(ctx, chatSessionID)
	if errors.Is(err, sqlite.ErrNotFound) {
		return d.sessions.Create(ctx, userID, "新对话", chatSessionID)
	}
	return session, err
}

func printMemories(ctx context.Context, d *deps, userID, sessionID string) {
	fragments, err := d.manager.Memories(ctx, userID, sessionID, chatRoleID, 50)
	if err != nil {
		fmt.Println("（读取记忆失败）")
		return
	}
	if len(fragments) == 0 {
		fmt.Println("（还没有记忆）")
		return
	}
	for _, frag := range fragments {
		fmt.Printf("- [%s/%d] %s\n", frag.Speaker, frag.Importance, frag.Content)
	}
}
