package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	apiFlag   string
	redisFlag string
	rootCmd   = &cobra.Command{
		Use:   "meetsyncctl",
		Short: "CLI client for the meetsync service",
	}
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&apiFlag, "api", "a", "http://localhost:3000", "Meetsync service base URL")
	rootCmd.PersistentFlags().StringVarP(&redisFlag, "redis", "r", "localhost:6379", "Redis address for queue and cache commands")

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Report service health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHealth(apiFlag, os.Stdout)
		},
	}
	rootCmd.AddCommand(healthCmd)

	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect the sync queue",
	}
	queueLenCmd := &cobra.Command{
		Use:   "len",
		Short: "Print the number of pending sync tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueueLen(redisFlag, os.Stdout)
		},
	}
	queueCmd.AddCommand(queueLenCmd)
	rootCmd.AddCommand(queueCmd)

	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the snapshot cache",
	}
	cacheInvalidateCmd := &cobra.Command{
		Use:   "invalidate <meetingId>",
		Short: "Drop a meeting's cached snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheInvalidate(redisFlag, args[0], os.Stdout)
		},
	}
	cacheCmd.AddCommand(cacheInvalidateCmd)
	rootCmd.AddCommand(cacheCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
