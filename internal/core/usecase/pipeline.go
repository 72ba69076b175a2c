package usecase

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/smarteducator/aidetector/internal/core/domain"
)

// processBatch runs every document of a claimed batch and writes the terminal
// batch status. Only a failure to list the documents marks the batch ERROR.
func (p *BatchProcessorUseCase) processBatch(ctx context.Context, batch *domain.Batch) domain.BatchSummary {
	start := p.now()
	logger := p.logger.With("batch_id", batch.ID)

	var summary domain.BatchSummary
	docs, err := p.store.ListDocumentsByBatch(ctx, batch.ID)
	if err != nil {
		logger.Error("batch_documents_fetch_failed", "error", err)
		summary = domain.BatchSummary{
			Status:       domain.BatchError,
			ErrorMessage: err.Error(),
		}
	} else {
		sortByQueuePosition(docs)
		outcomes := make([]domain.DocumentOutcome, 0, len(docs))
		for i := range docs {
			p.pace(ctx, logger)
			outcomes = append(outcomes, p.processDocument(ctx, logger, &docs[i]))
		}
		summary = summarizeOutcomes(outcomes)
	}

	p.finishBatch(ctx, logger, batch, summary)
	p.metrics.BatchFinished(summary.Status, p.now().Sub(start))
	return summary
}

// sortByQueuePosition orders documents by queue position; unpositioned
// documents go last and keep their fetch order.
func sortByQueuePosition(docs []domain.Document) {
	slices.SortStableFunc(docs, func(a, b domain.Document) int {
		switch {
		case a.QueuePosition == nil && b.QueuePosition == nil:
			return 0
		case a.QueuePosition == nil:
			return 1
		case b.QueuePosition == nil:
			return -1
		default:
			return cmp.Compare(*a.QueuePosition, *b.QueuePosition)
		}
	})
}

func (p *BatchProcessorUseCase) pace(ctx context.Context, logger *slog.Logger) {
	if p.limiter == nil {
		return
	}
	if err := p.limiter.Wait(ctx); err != nil {
		logger.Warn("document_pacing_skipped", "error", err)
	}
}

// processDocument never returns an error: every failure is folded into the outcome.
func (p *BatchProcessorUseCase) processDocument(ctx context.Context, logger *slog.Logger, doc *domain.Document) domain.DocumentOutcome {
	logger = logger.With("document_id", doc.ID)

	if strings.TrimSpace(doc.TeacherID) == "" {
		logger.Error("document_missing_owner")
		return domain.Failed(doc.ID, "document has no owner", domain.ErrMissingOwner)
	}

	if p.cfg.DocumentTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.DocumentTimeout)
		defer cancel()
	}

	p.metrics.DocumentStarted()
	start := p.now()
	outcome := p.runDocument(ctx, logger, doc)
	p.metrics.DocumentFinished(p.now().Sub(start), outcome.Succeeded)

	if outcome.Succeeded {
		logger.Info("document_completed")
	}
	return outcome
}

func (p *BatchProcessorUseCase) runDocument(ctx context.Context, logger *slog.Logger, doc *domain.Document) domain.DocumentOutcome {
	if err := p.markDocument(ctx, doc, domain.DocumentUpdate{Status: domain.DocumentProcessing}); err != nil {
		return p.failDocument(ctx, logger, doc, textCounts{}, fmt.Errorf("set status=processing: %w", err))
	}

	data, err := p.download(ctx, doc)
	if err != nil {
		return p.failDocument(ctx, logger, doc, textCounts{}, err)
	}

	counts := countText(p.extractText(ctx, logger, doc, data))

	if err := p.markDocument(ctx, doc, counts.update(domain.DocumentCompleted)); err != nil {
		return p.failDocument(ctx, logger, doc, counts, fmt.Errorf("set status=completed: %w", err))
	}
	if err := p.reconcileResult(ctx, logger, doc, domain.ResultCompleted); err != nil {
		return p.failDocument(ctx, logger, doc, counts, err)
	}
	return domain.Succeeded(doc.ID)
}

func (p *BatchProcessorUseCase) download(ctx context.Context, doc *domain.Document) ([]byte, error) {
	data, err := p.blobs.Download(ctx, doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("download document: %w", err)
	}
	if len(data) == 0 {
		return nil, domain.WrapError(domain.ErrBlobNotFound, "download document", errors.New("empty content"))
	}
	return data, nil
}

// extractText treats unsupported types and extraction failures as empty text.
func (p *BatchProcessorUseCase) extractText(ctx context.Context, logger *slog.Logger, doc *domain.Document, data []byte) string {
	text, err := p.extractor.Extract(ctx, data, doc.FileType)
	if err != nil {
		logger.Warn("document_text_unavailable", "file_type", doc.FileType, "error", err)
		return ""
	}
	return text
}

func (p *BatchProcessorUseCase) failDocument(
	ctx context.Context,
	logger *slog.Logger,
	doc *domain.Document,
	counts textCounts,
	cause error,
) domain.DocumentOutcome {
	logger.Error("document_failed", "error", cause)

	// Record the failure even when the document deadline already expired.
	ctx = context.WithoutCancel(ctx)
	if err := p.markDocument(ctx, doc, counts.update(domain.DocumentError)); err != nil {
		logger.Error("document_mark_error_failed", "error", err)
	}
	if err := p.reconcileResult(ctx, logger, doc, domain.ResultError); err != nil {
		logger.Error("result_mark_error_failed", "error", err)
	}
	return domain.Failed(doc.ID, cause.Error(), cause)
}

func (p *BatchProcessorUseCase) markDocument(ctx context.Context, doc *domain.Document, update domain.DocumentUpdate) error {
	return p.store.UpdateDocument(ctx, doc.ID, doc.TeacherID, update)
}

type textCounts struct {
	characters *int
	words      *int
}

// countText counts runes and whitespace-delimited words; empty text yields no counts.
func countText(text string) textCounts {
	if text == "" {
		return textCounts{}
	}
	characters := utf8.RuneCountInString(text)
	words := len(strings.Fields(text))
	return textCounts{characters: &characters, words: &words}
}

func (c textCounts) update(status domain.DocumentStatus) domain.DocumentUpdate {
	return domain.DocumentUpdate{
		Status:         status,
		CharacterCount: c.characters,
		WordCount:      c.words,
	}
}
