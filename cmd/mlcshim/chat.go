package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mlcshim/internal/client"
	"mlcshim/pkg/types"
)

func defaultURL() string {
	if v := os.Getenv("MLC_URL"); v != "" {
		return v
	}
	return "http://127.0.0.1:8000"
}

func newChatCmd() *cobra.Command {
	var (
		url     string
		system  string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:     "chat <message...>",
		Short:   "Send one message to a running server and print the streamed answer",
		Example: "  mlcshim chat \"What is 2+2?\"\n  mlcshim chat --url http://gpu-box:8000 --system \"Answer briefly\" Why is the sky blue",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			var msgs []types.ChatMessage
			if system != "" {
				msgs = append(msgs, types.ChatMessage{Role: "system", Content: types.MessageContent(system)})
			}
			msgs = append(msgs, types.ChatMessage{Role: "user", Content: types.MessageContent(strings.Join(args, " "))})

			out := cmd.OutOrStdout()
			err := client.New(url, nil).StreamChat(ctx, msgs, func(tok string) error {
				_, err := fmt.Fprint(out, tok)
				return err
			})
			fmt.Fprintln(out)
			return err
		},
	}
	cmd.Flags().StringVar(&url, "url", defaultURL(), "Server base URL (defaults MLC_URL)")
	cmd.Flags().StringVar(&system, "system", "", "Optional system message sent before the prompt")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Client-side timeout (0 waits for the server)")
	return cmd
}

func newModelsCmd() *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List models advertised by a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			models, err := client.New(url, nil).Models(ctx)
			if err != nil {
				return err
			}
			for _, m := range models {
				fmt.Fprintln(cmd.OutOrStdout(), m.ID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", defaultURL(), "Server base URL (defaults MLC_URL)")
	return cmd
}
