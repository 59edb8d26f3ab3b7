package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fenwick-run/agentctl/pkg/authstore"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage credential profiles",
}

var authSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Import credentials from environment variables for providers with no existing profile",
	RunE:  runAuthSync,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authSyncCmd)
}

func runAuthSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store := authstore.New(cfg.Stores.AuthStorePath)
	added, err := authstore.AutosyncEnvCredentials(store)
	if err != nil {
		return err
	}

	if len(added) == 0 {
		fmt.Println("no new credentials imported")
		return nil
	}

	for _, id := range added {
		fmt.Printf("imported %s\n", id)
	}
	return nil
}
