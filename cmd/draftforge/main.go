// Package main provides the draftforge binary entry point.
// DraftForge drafts grant proposals section by section with LLM
// assistance and checks them against funder compliance rules.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	// Register LLM providers via init()
	_ "github.com/draftforge/draftforge/llm/providers"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "draftforge"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		addr       string
		natsURL    string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "draftforge",
		Short: "Grant proposal drafting service",
		Long: `DraftForge is a grant proposal drafting service.

It provides:
- Sequential section generation streamed over SSE
- Rule validation of drafted content
- Template and rule extraction from call documents

State lives in NATS JetStream key-value buckets; the server can run
against an external NATS or start an embedded one.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, addr, natsURL, logLevel)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides config)")
	cmd.Flags().StringVar(&natsURL, "nats-url", "", "External NATS URL (overrides config)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}
