package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/smarteducator/aidetector/internal/core/domain"
)

type docUpdateCall struct {
	id        string
	teacherID string
	update    domain.DocumentUpdate
}

type batchStatusCall struct {
	id     string
	status domain.BatchStatus
	errMsg string
}

type finishCall struct {
	id      string
	summary domain.BatchSummary
}

type resultUpdateCall struct {
	id     string
	status domain.ResultStatus
}

type recordStoreFake struct {
	mu sync.Mutex

	queued     []*domain.Batch
	claimErr   error
	claimPanic bool

	batches map[string]*domain.Batch
	docs    []domain.Document
	listErr error

	// results are keyed by document id.
	results         map[string]*domain.Result
	getResultErr    error
	updateResultErr error
	updateDocErr    func(id string, status domain.DocumentStatus) error
	createBatchErr  error
	createDocErr    error
	batchStatusErr  error

	createdBatches []domain.Batch
	createdDocs    []domain.Document
	createdResults []domain.Result
	docUpdates     []docUpdateCall
	resultUpdates  []resultUpdateCall
	batchStatuses  []batchStatusCall
	finished       []finishCall
}

func newRecordStoreFake() *recordStoreFake {
	return &recordStoreFake{
		batches: make(map[string]*domain.Batch),
		results: make(map[string]*domain.Result),
	}
}

func (f *recordStoreFake) CreateBatch(_ context.Context, batch *domain.Batch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createBatchErr != nil {
		return f.createBatchErr
	}
	f.createdBatches = append(f.createdBatches, *batch)
	copyBatch := *batch
	f.batches[batch.ID] = &copyBatch
	return nil
}

func (f *recordStoreFake) GetBatch(_ context.Context, id string) (*domain.Batch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	batch, ok := f.batches[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrBatchNotFound, "get batch", errors.New(id))
	}
	copyBatch := *batch
	return &copyBatch, nil
}

func (f *recordStoreFake) ClaimNextBatch(context.Context) (*domain.Batch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimPanic {
		panic("claim exploded")
	}
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	if len(f.queued) == 0 {
		return nil, nil
	}
	batch := f.queued[0]
	f.queued = f.queued[1:]
	batch.Status = domain.BatchProcessing
	return batch, nil
}

func (f *recordStoreFake) UpdateBatchStatus(_ context.Context, id string, status domain.BatchStatus, errMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchStatuses = append(f.batchStatuses, batchStatusCall{id: id, status: status, errMsg: errMessage})
	if f.batchStatusErr != nil && status == domain.BatchQueued {
		return f.batchStatusErr
	}
	return nil
}

func (f *recordStoreFake) FinishBatch(_ context.Context, id string, summary domain.BatchSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished = append(f.finished, finishCall{id: id, summary: summary})
	return nil
}

func (f *recordStoreFake) CreateDocument(_ context.Context, doc *domain.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createDocErr != nil {
		return f.createDocErr
	}
	f.createdDocs = append(f.createdDocs, *doc)
	return nil
}

func (f *recordStoreFake) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, doc := range f.docs {
		if doc.ID == id {
			copyDoc := doc
			return &copyDoc, nil
		}
	}
	return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", errors.New(id))
}

func (f *recordStoreFake) ListDocumentsByBatch(context.Context, string) ([]domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.Document, len(f.docs))
	copy(out, f.docs)
	return out, nil
}

func (f *recordStoreFake) UpdateDocument(_ context.Context, id, teacherID string, update domain.DocumentUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docUpdates = append(f.docUpdates, docUpdateCall{id: id, teacherID: teacherID, update: update})
	if f.updateDocErr != nil {
		return f.updateDocErr(id, update.Status)
	}
	return nil
}

func (f *recordStoreFake) CreateResult(_ context.Context, result *domain.Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createdResults = append(f.createdResults, *result)
	return nil
}

func (f *recordStoreFake) GetResultByDocumentID(_ context.Context, documentID string) (*domain.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getResultErr != nil {
		return nil, f.getResultErr
	}
	result, ok := f.results[documentID]
	if !ok {
		return nil, domain.WrapError(domain.ErrResultNotFound, "get result", errors.New(documentID))
	}
	copyResult := *result
	return &copyResult, nil
}

func (f *recordStoreFake) UpdateResultStatus(_ context.Context, id string, status domain.ResultStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resultUpdates = append(f.resultUpdates, resultUpdateCall{id: id, status: status})
	return f.updateResultErr
}

// lastDocStatus returns the most recent status written for a document.
func (f *recordStoreFake) lastDocStatus(id string) domain.DocumentStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	var status domain.DocumentStatus
	for _, call := range f.docUpdates {
		if call.id == id {
			status = call.update.Status
		}
	}
	return status
}

func (f *recordStoreFake) lastResultStatus(id string) domain.ResultStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	var status domain.ResultStatus
	for _, call := range f.resultUpdates {
		if call.id == id {
			status = call.status
		}
	}
	return status
}

type blobStoreFake struct {
	// entered and release, when set, hold every Download until release is closed.
	entered chan struct{}
	release chan struct{}

	mu        sync.Mutex
	data      map[string][]byte
	errs      map[string]error
	saveErr   error
	saved     map[string]string
	downloads []string
}

func newBlobStoreFake() *blobStoreFake {
	return &blobStoreFake{
		data:  make(map[string][]byte),
		errs:  make(map[string]error),
		saved: make(map[string]string),
	}
}

func (f *blobStoreFake) Save(_ context.Context, key string, data io.Reader) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, data); err != nil {
		return err
	}
	f.saved[key] = buf.String()
	return nil
}

func (f *blobStoreFake) Download(_ context.Context, key string) ([]byte, error) {
	if f.release != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads = append(f.downloads, key)
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	data, ok := f.data[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrBlobNotFound, "download", errors.New(key))
	}
	return data, nil
}

type extractorFake struct {
	text string
	err  error
}

func (f *extractorFake) Extract(context.Context, []byte, domain.FileType) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type eventsFake struct {
	events []domain.BatchFinishedEvent
	err    error
}

func (f *eventsFake) PublishBatchFinished(_ context.Context, event domain.BatchFinishedEvent) error {
	f.events = append(f.events, event)
	return f.err
}

func fixedClock() func() time.Time {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time { return now }
}

func intPtr(v int) *int { return &v }

// seedDocument registers a document with its blob and result.
func seedDocument(store *recordStoreFake, blobs *blobStoreFake, id string, position *int) domain.Document {
	doc := domain.Document{
		ID:            id,
		BatchID:       "batch-1",
		QueuePosition: position,
		TeacherID:     "teacher-1",
		StoragePath:   "blob-" + id,
		FileType:      domain.FileTypeTXT,
		Status:        domain.DocumentUploaded,
	}
	store.docs = append(store.docs, doc)
	store.results[id] = &domain.Result{ID: "result-" + id, DocumentID: id, TeacherID: "teacher-1", Status: domain.ResultPending}
	blobs.data[doc.StoragePath] = []byte("content of " + id)
	return doc
}
