package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fenwick-run/agentctl/pkg/sessionstore"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect per-session metadata",
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <key>",
	Short: "Print the stored metadata for one session key",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store := sessionstore.New(cfg.Stores.SessionStorePath)
	entries, err := store.Load()
	if err != nil {
		return err
	}

	entry, ok := entries[args[0]]
	if !ok {
		fmt.Printf("no session recorded for key %q\n", args[0])
		return nil
	}

	fmt.Printf("sessionId=%s updatedAt=%d\n", entry.SessionID, entry.UpdatedAt)
	if entry.TotalTokens != nil {
		fmt.Printf("totalTokens=%d\n", *entry.TotalTokens)
	}
	if entry.ContextTokens != nil {
		fmt.Printf("contextTokens=%d\n", *entry.ContextTokens)
	}
	if entry.SessionAutoCompactLastAt != nil {
		fmt.Printf("lastAutoCompactAt=%d\n", *entry.SessionAutoCompactLastAt)
	}
	return nil
}
