package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/user/finclaw/internal/types"
)

func init() {
	rootCmd.AddCommand(threadCmd)
	threadCmd.AddCommand(threadListCmd, threadShowCmd, threadDeleteCmd)
}

var threadCmd = &cobra.Command{
	Use:   "thread",
	Short: "Manage conversation threads",
}

var threadListCmd = &cobra.Command{
	Use:   "list <advisor-id>",
	Short: "List an advisor's threads",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := types.ParseOwnerID(args[0])
		if err != nil {
			return fmt.Errorf("invalid advisor id: %w", err)
		}

		ctx := context.Background()
		d, err := buildDeps(ctx, loadConfig())
		if err != nil {
			return err
		}
		defer d.close()

		threads, err := d.store.ListThreads(ctx, owner)
		if err != nil {
			return fmt.Errorf("list threads: %w", err)
		}
		if len(threads) == 0 {
			fmt.Println("No threads found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tCONTEXT\tLAST MESSAGE")
		for _, t := range threads {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				t.ID,
				t.Title,
				t.Context,
				t.LastMessageAt.Format("2006-01-02 15:04:05"),
			)
		}
		return w.Flush()
	},
}

var threadShowCmd = &cobra.Command{
	Use:   "show <advisor-id> <thread-id>",
	Short: "Show a thread's messages",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := types.ParseOwnerID(args[0])
		if err != nil {
			return fmt.Errorf("invalid advisor id: %w", err)
		}

		ctx := context.Background()
		d, err := buildDeps(ctx, loadConfig())
		if err != nil {
			return err
		}
		defer d.close()

		msgs, err := d.store.ListMessages(ctx, owner, types.ThreadID(args[1]))
		if err != nil {
			return fmt.Errorf("list messages: %w", err)
		}

		for _, m := range msgs {
			fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Format("2006-01-02 15:04"), m.Role, m.Content)
			for _, tc := range m.Metadata.ToolCalls {
				fmt.Printf("    tool %s\n", tc.Tool)
			}
		}
		return nil
	},
}

var threadDeleteCmd = &cobra.Command{
	Use:   "delete <advisor-id> <thread-id>",
	Short: "Delete a thread and its messages",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := types.ParseOwnerID(args[0])
		if err != nil {
			return fmt.Errorf("invalid advisor id: %w", err)
		}

		ctx := context.Background()
		d, err := buildDeps(ctx, loadConfig())
		if err != nil {
			return err
		}
		defer d.close()

		if err := d.store.DeleteThread(ctx, owner, types.ThreadID(args[1])); err != nil {
			return fmt.Errorf("delete thread: %w", err)
		}
		fmt.Println("Thread deleted.")
		return nil
	},
}
