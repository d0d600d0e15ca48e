package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/finclaw/internal/agent"
	"github.com/user/finclaw/internal/types"
)

var chatNewThread bool

func init() {
	chatCmd.Flags().BoolVar(&chatNewThread, "new", false, "start a new conversation thread")
	rootCmd.AddCommand(chatCmd)
}

var chatCmd = &cobra.Command{
	Use:   "chat [advisor-id]",
	Short: "Chat with the assistant from the terminal",
	Long:  "Interactive chat as a configured advisor. With no argument, the first configured advisor is used.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	var ownerID string
	if len(args) > 0 {
		ownerID = args[0]
	} else if len(cfg.Advisors) > 0 {
		ownerID = cfg.Advisors[0].ID
	} else {
		return fmt.Errorf("no advisor configured; pass an advisor id or add one to the config")
	}
	owner, err := types.ParseOwnerID(ownerID)
	if err != nil {
		return fmt.Errorf("invalid advisor id %q: %w", ownerID, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.close()

	var thread types.ThreadID
	if chatNewThread {
		t := &types.Thread{OwnerID: owner}
		if err := d.store.CreateThread(ctx, t); err != nil {
			return fmt.Errorf("create thread: %w", err)
		}
		thread = t.ID
	}

	fmt.Printf("Chatting as %s. Ctrl-D to exit.\n", d.advisorFor(owner))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		reply, err := d.agent.Chat(ctx, agent.ChatRequest{
			Owner:  owner,
			Thread: thread,
			Text:   text,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		thread = reply.ThreadID
		fmt.Println(reply.Content)
	}
}
