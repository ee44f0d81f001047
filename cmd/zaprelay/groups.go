package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/zaprelay/zaprelay/relay"
)

func newGroupsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "Inspect WhatsApp groups visible to the configured account",
	}
	cmd.AddCommand(newGroupsListCmd())
	cmd.AddCommand(newGroupsTestCmd())
	return cmd
}

func newGroupsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List groups with their JIDs (use one as notify.group_id)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := wasenderFromViper()
			if err != nil {
				return err
			}
			groups, err := client.Groups(cmd.Context())
			if err != nil {
				return err
			}
			if len(groups) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No groups found.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "GROUP ID\tNAME")
			for _, g := range groups {
				_, _ = fmt.Fprintf(w, "%s\t%s\n", g.ID, g.Name)
			}
			return w.Flush()
		},
	}
}

func newGroupsTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Send a test escalation notice to a group",
		RunE: func(cmd *cobra.Command, args []string) error {
			group, _ := cmd.Flags().GetString("group")
			group = strings.TrimSpace(group)
			if group == "" {
				return fmt.Errorf("missing --group (a JID like 1203630XXXXXXX@g.us, see 'zaprelay groups list')")
			}

			client, err := wasenderFromViper()
			if err != nil {
				return err
			}
			msg := relay.NotificationMessage(
				"5500000000000@s.whatsapp.net",
				"Mensagem de teste enviada pelo zaprelay.",
				"Teste de notificação",
				time.Now(),
			)
			if err := client.SendText(cmd.Context(), group, msg); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Test notice sent to %s\n", group)
			return nil
		},
	}
	cmd.Flags().String("group", "", "Group JID to send the test notice to.")
	return cmd
}
