package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JaimeStill/curator/internal/annotate"
	"github.com/JaimeStill/curator/internal/insights"
)

// ApplyEligible accepts and applies every undecided insight whose
// process_after has passed. The batch runs in one transaction: any failure
// rolls back every decision of the run, and the insights are selected
// again next time. Only recorded decisions count as processed.
func (s *Scheduler) ApplyEligible(ctx context.Context) (int, error) {
	logger := s.logger.With("job", JobApplyEligible)
	processed := 0

	err := s.deps.Insights.InTx(ctx, func(st insights.Store) error {
		eligible, err := st.ListApplicable(ctx, s.now())
		if err != nil {
			return err
		}

		for i := range eligible {
			insight := &eligible[i]
			result, err := s.deps.Engine.AnnotateTx(ctx, st, insight, insights.Accepted, annotate.Options{
				Automatic: true,
			})
			if err != nil {
				return fmt.Errorf("apply insight %s: %w", insight.ID, err)
			}
			if !result.Recorded() {
				logger.Warn(
					"insight not applied",
					"id", insight.ID,
					"type", insight.Type,
					"status", result.Status,
				)
				continue
			}
			logger.Info(
				"insight applied",
				"id", insight.ID,
				"type", insight.Type,
				"barcode", insight.Barcode,
				"status", result.Status,
			)
			processed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.Info("apply complete", "processed", processed)
	return processed, nil
}

// MarkEligible stamps process_after on every unmarked insight whose family
// predicate reports no validation is needed. Insights of a family with no
// predicate are skipped. Insights found to need validation are remembered
// and not evaluated again.
func (s *Scheduler) MarkEligible(ctx context.Context) (int, error) {
	logger := s.logger.With("job", JobMarkEligible)
	marked := 0

	err := s.deps.Insights.InTx(ctx, func(st insights.Store) error {
		unmarked, err := st.ListUnmarked(ctx)
		if err != nil {
			return err
		}

		for i := range unmarked {
			insight := &unmarked[i]
			if s.memo.Contains(insight.ID) {
				continue
			}

			predicate, ok := s.deps.Validation.Get(insight.Type)
			if !ok {
				continue
			}

			need, err := predicate.NeedValidation(ctx, insight)
			if err != nil {
				if errors.Is(err, annotate.ErrInvalidInsight) {
					logger.Warn("skipping invalid insight", "id", insight.ID, "error", err)
					continue
				}
				return fmt.Errorf("evaluate insight %s: %w", insight.ID, err)
			}
			if need {
				s.memo.Add(insight.ID)
				continue
			}

			now := s.now()
			insight.ProcessAfter = &now
			if err := st.Save(ctx, insight); err != nil {
				return err
			}
			logger.Info("insight marked", "id", insight.ID, "type", insight.Type, "barcode", insight.Barcode)
			marked++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.Info("mark complete", "marked", marked, "memo", s.memo.Len())
	return marked, nil
}

// RefreshDataset fetches the dataset snapshot when the published one has
// changed, reporting whether a fetch happened.
func (s *Scheduler) RefreshDataset(ctx context.Context) (bool, error) {
	logger := s.logger.With("job", JobRefreshDataset)

	if s.deps.Dataset == nil {
		logger.Debug("no dataset configured")
		return false, nil
	}

	changed, err := s.deps.Dataset.HasChanged(ctx)
	if err != nil {
		return false, fmt.Errorf("check dataset: %w", err)
	}
	if !changed {
		logger.Info("dataset unchanged")
		return false, nil
	}

	if err := s.deps.Dataset.Fetch(ctx); err != nil {
		return false, fmt.Errorf("fetch dataset: %w", err)
	}
	logger.Info("dataset refreshed")
	return true, nil
}

// ApplyType applies pending insights of one type whose source image passes
// the processability check for maxAge. Each insight is annotated in its own
// transaction. Insights whose premises cannot be resolved are logged and
// skipped, as are labels without an authorizing predicate and insights
// whose process_after lies in the future.
func (s *Scheduler) ApplyType(ctx context.Context, t insights.Type, maxAge time.Duration) (int, error) {
	if s.deps.Evaluator == nil {
		return 0, errors.New("apply by type requires an evaluator")
	}
	logger := s.logger.With("job", "apply_type", "type", t)

	var pending []insights.Insight
	err := s.deps.Insights.InTx(ctx, func(st insights.Store) error {
		var err error
		pending, err = st.ListPending(ctx, t)
		return err
	})
	if err != nil {
		return 0, err
	}

	applied := 0
	for i := range pending {
		insight := &pending[i]

		ok, err := s.applicable(ctx, insight, maxAge)
		if err != nil {
			if errors.Is(err, annotate.ErrInvalidInsight) {
				logger.Warn("skipping invalid insight", "id", insight.ID, "error", err)
				continue
			}
			return applied, err
		}
		if !ok {
			continue
		}

		result, err := s.deps.Engine.AnnotateByID(ctx, insight.ID, insights.Accepted, annotate.Options{
			Automatic: true,
		})
		if err != nil {
			return applied, fmt.Errorf("apply insight %s: %w", insight.ID, err)
		}
		logger.Info("insight applied", "id", insight.ID, "barcode", insight.Barcode, "status", result.Status)
		switch result.Status {
		case annotate.StatusSaved, annotate.StatusUpdated:
			applied++
		}
	}

	logger.Info("apply by type complete", "pending", len(pending), "applied", applied)
	return applied, nil
}

func (s *Scheduler) applicable(ctx context.Context, insight *insights.Insight, maxAge time.Duration) (bool, error) {
	if insight.ProcessAfter != nil && insight.ProcessAfter.After(s.now()) {
		return false, nil
	}

	if insight.Type == insights.TypeLabel {
		predicate, ok := s.deps.Validation.Get(insights.TypeLabel)
		if !ok {
			return false, nil
		}
		need, err := predicate.NeedValidation(ctx, insight)
		if err != nil || need {
			return false, err
		}
	}

	return s.deps.Evaluator.IsAutomaticallyProcessable(ctx, insight.Barcode, insight.SourceImageString(), maxAge)
}

// RunOnce runs the mark and apply jobs in sequence, so insights marked in
// this run are applied in the same run.
func (s *Scheduler) RunOnce(ctx context.Context) (marked, applied int, err error) {
	if marked, err = s.MarkEligible(ctx); err != nil {
		return 0, 0, err
	}
	applied, err = s.ApplyEligible(ctx)
	return marked, applied, err
}

// Run executes the named job once outside the cron schedule.
func (s *Scheduler) Run(ctx context.Context, name string) (RunResult, error) {
	result := RunResult{Job: name}

	var err error
	switch name {
	case JobApplyEligible:
		result.Processed, err = s.ApplyEligible(ctx)
	case JobMarkEligible:
		result.Processed, err = s.MarkEligible(ctx)
	case JobRefreshDataset:
		result.Refreshed, err = s.RefreshDataset(ctx)
	default:
		return result, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return result, err
}
