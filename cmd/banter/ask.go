package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask <message>",
	Short: "Send one message and print the reply",
	Long:  "Sends one message through the configured engine. The exchange is kept in the stored history.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		sess, err := openSession(ctx, cfg, false)
		if err != nil {
			return err
		}
		defer sess.Close()

		reply, err := sess.engine.Respond(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), reply.Text)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}
