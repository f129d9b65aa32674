package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/curator/internal/insights"
	"github.com/JaimeStill/curator/pkg/formatting"
)

var applyEligibleCmd = &cobra.Command{
	Use:   "apply-eligible",
	Short: "Accept and apply every insight whose process_after has passed",
	Args:  cobra.NoArgs,
	RunE: withSession(func(ctx context.Context, s *session, _ []string) error {
		n, err := s.domain.Scheduler.ApplyEligible(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("applied %d insights\n", n)
		return nil
	}),
}

var markEligibleCmd = &cobra.Command{
	Use:   "mark-eligible",
	Short: "Mark insights that need no human validation",
	Args:  cobra.NoArgs,
	RunE: withSession(func(ctx context.Context, s *session, _ []string) error {
		n, err := s.domain.Scheduler.MarkEligible(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("marked %d insights\n", n)
		return nil
	}),
}

var refreshDatasetCmd = &cobra.Command{
	Use:   "refresh-dataset",
	Short: "Fetch the product dataset when the published copy changed",
	Args:  cobra.NoArgs,
	RunE: withSession(func(ctx context.Context, s *session, _ []string) error {
		refreshed, err := s.domain.Scheduler.RefreshDataset(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("dataset refreshed: %v\n", refreshed)
		return nil
	}),
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every job once: mark then apply, alongside a dataset refresh",
	Args:  cobra.NoArgs,
	RunE: withSession(func(ctx context.Context, s *session, _ []string) error {
		var (
			marked, applied int
			refreshed       bool
		)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			marked, applied, err = s.domain.Scheduler.RunOnce(gctx)
			return err
		})
		g.Go(func() error {
			var err error
			refreshed, err = s.domain.Scheduler.RefreshDataset(gctx)
			return err
		})
		if err := g.Wait(); err != nil {
			return err
		}

		fmt.Printf("marked %d, applied %d, dataset refreshed: %v\n", marked, applied, refreshed)
		return nil
	}),
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply pending insights of one type backed by a recent image",
	Args:  cobra.NoArgs,
	RunE: withSession(func(ctx context.Context, s *session, _ []string) error {
		t := insights.Type(applyType)
		if !t.Valid() {
			return fmt.Errorf("%w: %q", insights.ErrInvalidType, applyType)
		}
		maxAge, err := formatting.ParseAge(applyMaxAge)
		if err != nil {
			return fmt.Errorf("max-age: %w", err)
		}

		n, err := s.domain.Scheduler.ApplyType(ctx, t, maxAge)
		if err != nil {
			return err
		}
		fmt.Printf("applied %d %s insights\n", n, t)
		return nil
	}),
}

var (
	applyType   string
	applyMaxAge string
)

func init() {
	applyCmd.Flags().StringVarP(&applyType, "type", "t", "", "insight type to apply")
	applyCmd.Flags().StringVar(&applyMaxAge, "max-age", "30d", "maximum age of the source image relative to the newest upload")
	_ = applyCmd.MarkFlagRequired("type")
}
