// Package main provides the triagent binary entry point.
// Triagent is an automated CI/CD failure triage pipeline: failures are
// diagnosed by a language model, the proposed fix is validated against
// a keyword policy, and approved low-risk commands are executed under
// guard rails.
package main

import (
	"fmt"
	"os"
	"runtime"

	// Register LLM providers via init()
	_ "github.com/c360studio/triagent/llm/providers"

	"github.com/spf13/cobra"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "triagent"
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
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "triagent",
		Short: "Automated CI/CD failure triage pipeline",
		Long: `Triagent triages CI/CD pipeline failures automatically.

Failure events flow through three stages connected by NATS JetStream:
- diagnoser: asks a language model for a fix and classifies the answer
- validator: approves or rejects the fix against a keyword policy
- remediator: executes approved low-risk commands under guard rails

Every stage tolerates malformed input and redelivery; dangerous
commands are rejected independently of any upstream approval.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, logLevel)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(injectCmd())

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}
