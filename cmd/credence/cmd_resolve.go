package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Harshitk-cp/credence/internal/domain"
	"github.com/Harshitk-cp/credence/internal/rdf"
	"github.com/Harshitk-cp/credence/internal/service"
	"github.com/Harshitk-cp/credence/internal/store"
	"github.com/spf13/cobra"
)

type resolveOptions struct {
	policy      string
	local       string
	format      string
	timeout     time.Duration
	failureMode string
	summary     bool
}

func newResolveCmd() *cobra.Command {
	var opts resolveOptions
	cmd := &cobra.Command{
		Use:   "resolve <subject>...",
		Short: "Fetch each subject and print its credible graph",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, args, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.policy, "policy", "", "Credibility policy (default from CREDENCE_POLICY)")
	f.StringVar(&opts.local, "local", "", "Graph file (.nt, .json, .yaml) asserted as every subject's local context")
	f.StringVarP(&opts.format, "format", "f", "ntriples", "Output format: ntriples, json, yaml")
	f.DurationVar(&opts.timeout, "timeout", 0, "Per-fetch timeout (default from INVESTIGATION_TIMEOUT)")
	f.StringVar(&opts.failureMode, "failure-mode", "", "skip or abort (default from FAILURE_MODE)")
	f.BoolVar(&opts.summary, "summary", false, "Print one tab-separated line per subject instead of graphs")
	return cmd
}

func runResolve(cmd *cobra.Command, args []string, opts resolveOptions) error {
	format, err := rdf.ByName(opts.format)
	if err != nil {
		return err
	}

	subjects := make([]domain.Subject, len(args))
	for i, raw := range args {
		s, err := domain.ParseSubject(raw)
		if err != nil {
			return err
		}
		subjects[i] = s
	}

	setup, err := service.SetupFromEnv()
	if err != nil {
		return err
	}
	if opts.timeout > 0 {
		setup.HTTP.Timeout = opts.timeout
	}
	if opts.failureMode != "" {
		mode, err := service.ParseFailureMode(opts.failureMode)
		if err != nil {
			return err
		}
		setup.Resolution.FailureMode = mode
	}

	logger := newLogger(cmd)
	defer func() { _ = logger.Sync() }()

	svc, err := setup.Build(store.NewMemoryStore(), nil, logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if opts.local != "" {
		g, err := readGraphFile(opts.local)
		if err != nil {
			return err
		}
		for _, s := range subjects {
			if _, err := svc.AssertLocal(ctx, s, g); err != nil {
				return fmt.Errorf("assert local context for %s: %w", s, err)
			}
		}
	}

	results, err := svc.ResolveMany(ctx, subjects, opts.policy, false)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", r.Subject, r.Err)
			failed++
			continue
		}

		res := r.Resolution
		if opts.summary {
			fmt.Fprintf(out, "%s\t%s\t%d\t%d\n", res.Subject, res.Policy, len(res.Credible), res.Statements)
			continue
		}

		// N-Triples and YAML both treat '#' lines as comments
		if len(results) > 1 && format.Name != "json" {
			fmt.Fprintf(out, "# %s\n", res.Subject)
		}
		body, err := format.Encode(res.Graph)
		if err != nil {
			return fmt.Errorf("encode %s: %w", res.Subject, err)
		}
		if _, err := out.Write(body); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d subjects failed", failed, len(results))
	}
	return nil
}

func readGraphFile(path string) (*rdf.Graph, error) {
	format, err := rdf.ByExtension(filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	g, err := format.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}
