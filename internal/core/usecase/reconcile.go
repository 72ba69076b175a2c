package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/smarteducator/aidetector/internal/core/domain"
)

// reconcileResult mirrors a terminal document status onto its Result. A missing
// Result is logged and tolerated; the Document stays authoritative.
func (p *BatchProcessorUseCase) reconcileResult(
	ctx context.Context,
	logger *slog.Logger,
	doc *domain.Document,
	status domain.ResultStatus,
) error {
	result, err := p.store.GetResultByDocumentID(ctx, doc.ID)
	if err != nil {
		if domain.IsKind(err, domain.ErrResultNotFound) {
			logger.Warn("result_missing", "target_status", status)
			return nil
		}
		return fmt.Errorf("find result: %w", err)
	}

	if err := p.store.UpdateResultStatus(ctx, result.ID, status); err != nil {
		if domain.IsKind(err, domain.ErrResultNotFound) {
			logger.Warn("result_missing", "result_id", result.ID, "target_status", status)
			return nil
		}
		return fmt.Errorf("set result status=%s: %w", status, err)
	}
	return nil
}

// summarizeOutcomes derives the terminal batch write. Any failed document makes
// the batch PARTIAL, including the case where every document failed.
func summarizeOutcomes(outcomes []domain.DocumentOutcome) domain.BatchSummary {
	summary := domain.BatchSummary{Status: domain.BatchCompleted}
	for _, outcome := range outcomes {
		if outcome.Succeeded {
			summary.CompletedFiles++
		} else {
			summary.FailedFiles++
		}
	}
	if summary.FailedFiles > 0 {
		summary.Status = domain.BatchPartial
		summary.ErrorMessage = fmt.Sprintf("Failed to process %d files", summary.FailedFiles)
	}
	return summary
}

func (p *BatchProcessorUseCase) finishBatch(
	ctx context.Context,
	logger *slog.Logger,
	batch *domain.Batch,
	summary domain.BatchSummary,
) {
	if err := p.store.FinishBatch(ctx, batch.ID, summary); err != nil {
		logger.Error("batch_finish_failed", "status", summary.Status, "error", err)
		return
	}

	logger.Info("batch_finished",
		"status", summary.Status,
		"completed_files", summary.CompletedFiles,
		"failed_files", summary.FailedFiles,
	)

	if p.events == nil {
		return
	}
	event := domain.BatchFinishedEvent{
		BatchID:        batch.ID,
		TeacherID:      batch.TeacherID,
		Status:         summary.Status,
		CompletedFiles: summary.CompletedFiles,
		FailedFiles:    summary.FailedFiles,
		ErrorMessage:   summary.ErrorMessage,
		FinishedAt:     p.now(),
	}
	if err := p.events.PublishBatchFinished(ctx, event); err != nil {
		logger.Warn("batch_event_publish_failed", "error", err)
	}
}
