package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	var (
		addr    string
		session string
	)

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Send a message to a running gateway",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(addr, session, strings.Join(args, " "))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "http://localhost:8080", "gateway base URL")
	cmd.Flags().StringVar(&session, "session", "cli", "session identifier")
	return cmd
}

func runChat(addr, session, message string) error {
	payload, err := json.Marshal(map[string]string{
		"session_id": session,
		"message":    message,
	})
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 3 * time.Minute}
	resp, err := client.Post(addr+"/v1/chat", "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("gateway unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	var reply struct {
		Reply        string `json:"reply"`
		Error        string `json:"error"`
		Provider     string `json:"provider"`
		Model        string `json:"model"`
		InputTokens  int    `json:"input_tokens"`
		OutputTokens int    `json:"output_tokens"`
	}
	if err := json.Unmarshal(body, &reply); err != nil {
		return fmt.Errorf("unexpected response (%d): %s", resp.StatusCode, body)
	}
	if reply.Error != "" {
		return fmt.Errorf("%s", reply.Error)
	}

	fmt.Println(reply.Reply)
	fmt.Printf("\n[%s/%s, %d in / %d out]\n", reply.Provider, reply.Model, reply.InputTokens, reply.OutputTokens)
	return nil
}
