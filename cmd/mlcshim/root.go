package main

import (
	"os"

	"github.com/spf13/cobra"

	"mlcshim/internal/config"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "mlcshim",
		Short:         "OpenAI-compatible SSE chat endpoint over mlc_cli_chat",
		Long:          "mlcshim serves POST /v1/chat/completions by running mlc_cli_chat once per request and streaming its answer as server-sent events.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv("MLC_CONFIG"), "Path to a .yaml/.json/.toml config file (defaults MLC_CONFIG)")
	config.RegisterFlags(root.Flags())

	serve := &cobra.Command{
		Use:     "serve",
		Short:   "Run the HTTP server (default)",
		Example: "  mlcshim serve --addr :8000 --model-path /models/Llama-3-8B --model-lib /models/Llama-3-8B/lib.so",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}
	config.RegisterFlags(serve.Flags())

	root.AddCommand(serve, newChatCmd(), newModelsCmd())
	return root
}
