// Package main is the CLI entry point for the ClawSync multi-channel AI
// agent gateway.
//
// ClawSync connects messaging platforms (Telegram, Discord, Slack) and
// HTTP callers to LLM providers (Anthropic, OpenAI, Google, OpenRouter
// and OpenAI-compatible gateways) behind one persistent agent.
//
// Start the server:
//
//	clawsync serve --config clawsync.yaml
//
// Talk to the agent from the terminal:
//
//	clawsync chat "what changed this week?"
//
// Provider credentials come from the environment: ANTHROPIC_API_KEY,
// OPENAI_API_KEY, GEMINI_API_KEY, OPENROUTER_API_KEY, OPENCODE_API_KEY,
// XAI_API_KEY, CUSTOM_API_KEY. Analytics tooling activates when
// GA4_PROPERTY_ID, GA4_CLIENT_EMAIL and GA4_PRIVATE_KEY are all set.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clawsync",
		Short: "ClawSync multi-channel AI agent gateway",
		Long: `ClawSync runs a single persistent AI agent reachable over
Telegram, Discord, Slack and HTTP, backed by configurable LLM providers
with automatic fallback.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("clawsync %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
