package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zaprelay/zaprelay/conversation"
	"github.com/zaprelay/zaprelay/internal/statepaths"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage stored conversation history",
	}
	cmd.AddCommand(newHistoryClearCmd())
	return cmd
}

func newHistoryClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <user-id>",
		Short: "Delete one user's stored conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := conversation.NewStore(conversation.Options{
				Dir:        statepaths.ConversationsDir(),
				LocksDir:   statepaths.LocksDir(),
				MaxHistory: viper.GetInt("conversations.max_history"),
			})
			if err := store.Clear(args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Cleared history for %s\n", args[0])
			return nil
		},
	}
}
