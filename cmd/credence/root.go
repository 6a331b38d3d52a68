// credence resolves what is credibly known about a subject URI.
//
// Usage:
//
//	credence resolve <subject>... [--policy=may_subject] [--local=<file>] [--format=ntriples|json|yaml]
//	credence policies
//	credence investigators
//	credence version
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Harshitk-cp/credence/internal/buildconfig"
	"github.com/Harshitk-cp/credence/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "credence",
		Short: "Resolve the credible graph for a subject",
		Long: "credence gathers RDF statements about a subject from its own URI and from\n" +
			"locally asserted graphs, then keeps only what the chosen policy trusts.",
		Version:       buildconfig.Version(),
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return config.Load()
		},
	}
	root.PersistentFlags().String("log-level", "warn", "Log level written to stderr (debug, info, warn, error)")

	root.AddCommand(newResolveCmd())
	root.AddCommand(newPoliciesCmd())
	root.AddCommand(newInvestigatorsCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// newLogger writes to stderr so stdout carries only graph output.
func newLogger(cmd *cobra.Command) *zap.Logger {
	level, _ := cmd.Flags().GetString("log-level")
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		lvl = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	cfg.Level = lvl
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
