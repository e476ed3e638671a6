// Package ingest runs an uploaded batch through duplicate filtering and
// into the batch inserter.
package ingest

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"packdash/infrastructure/spreadsheet"
	"packdash/models"
)

// Parser turns a workbook stream into candidate line items.
type Parser interface {
	Parse(ctx context.Context, r io.Reader) (*spreadsheet.Result, error)
}

// DuplicateFilter splits candidates into accepted items and rejected keys.
type DuplicateFilter interface {
	Apply(ctx context.Context, items []models.PackagingLineItem) ([]models.PackagingLineItem, []string)
}

// BatchInserter persists accepted items all-or-nothing.
type BatchInserter interface {
	InsertBatch(ctx context.Context, items []models.PackagingLineItem) error
}

// Recorder observes finished ingestions.
type Recorder interface {
	ObserveIngest(o Outcome, elapsed time.Duration)
}

// Outcome is the structured result of one ingestion. Callers always get one;
// Success is false only when the batch insert failed or the upload could not
// be parsed at all (Precondition).
type Outcome struct {
	BatchID         string   `json:"batch_id" yaml:"batch_id"`
	Filename        string   `json:"filename,omitempty" yaml:"filename,omitempty"`
	Success         bool     `json:"success" yaml:"success"`
	TotalReceived   int      `json:"total_received" yaml:"total_received"`
	ValidRecords    int      `json:"valid_records" yaml:"valid_records"`
	DuplicatesFound int      `json:"duplicates_found" yaml:"duplicates_found"`
	DuplicateKeys   []string `json:"duplicate_keys" yaml:"duplicate_keys"`
	RowErrors       int      `json:"row_errors" yaml:"row_errors"`
	DroppedRows     int      `json:"dropped_rows" yaml:"dropped_rows"`
	Error           string   `json:"error,omitempty" yaml:"error,omitempty"`
	Precondition    bool     `json:"-" yaml:"-"`
}

type batchKey struct{}

// BatchInfo describes the batch being inserted. Inserters read it from the
// context to record the run.
type BatchInfo struct {
	ID              string
	Filename        string
	TotalReceived   int
	DuplicatesFound int
}

func WithBatchInfo(ctx context.Context, info BatchInfo) context.Context {
	return context.WithValue(ctx, batchKey{}, info)
}

func BatchInfoFrom(ctx context.Context) (BatchInfo, bool) {
	info, ok := ctx.Value(batchKey{}).(BatchInfo)
	return info, ok
}

// Service is the ingestion orchestrator.
type Service struct {
	parser   Parser
	filter   DuplicateFilter
	inserter BatchInserter
	recorder Recorder
	logger   *slog.Logger
	newID    func() string
	now      func() time.Time
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithIDGenerator overrides batch id generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

func NewService(parser Parser, filter DuplicateFilter, inserter BatchInserter, opts ...Option) *Service {
	s := &Service{
		parser:   parser,
		filter:   filter,
		inserter: inserter,
		logger:   slog.Default(),
		newID:    func() string { return uuid.NewString() },
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Process filters items against today's ledger and inserts exactly the
// accepted ones. An empty accepted set succeeds without touching the
// inserter.
func (s *Service) Process(ctx context.Context, items []models.PackagingLineItem) Outcome {
	return s.process(ctx, s.newID(), "", items)
}

// ProcessUpload gates on the filename, parses raw and processes the result.
func (s *Service) ProcessUpload(ctx context.Context, raw []byte, filename string) Outcome {
	batchID := s.newID()
	log := s.logger.With(slog.String("batch_id", batchID), slog.String("filename", filename))

	if err := spreadsheet.ValidateFilename(filename); err != nil {
		log.Warn("upload rejected", slog.Any("err", err))
		return s.rejected(batchID, filename, err)
	}

	res, err := s.parser.Parse(ctx, bytes.NewReader(raw))
	if err != nil {
		log.Warn("upload could not be parsed", slog.Any("err", err))
		return s.rejected(batchID, filename, err)
	}

	out := s.process(ctx, batchID, filename, res.Items)
	out.RowErrors = len(res.RowErrors)
	out.DroppedRows = res.Dropped
	return out
}

func (s *Service) rejected(batchID, filename string, err error) Outcome {
	out := Outcome{
		BatchID:       batchID,
		Filename:      filename,
		DuplicateKeys: []string{},
		Error:         err.Error(),
		Precondition:  true,
	}
	if s.recorder != nil {
		s.recorder.ObserveIngest(out, 0)
	}
	return out
}

func (s *Service) process(ctx context.Context, batchID, filename string, items []models.PackagingLineItem) Outcome {
	start := s.now()
	log := s.logger.With(slog.String("batch_id", batchID))

	accepted, rejected := s.filter.Apply(ctx, items)
	if rejected == nil {
		rejected = []string{}
	}
	out := Outcome{
		BatchID:         batchID,
		Filename:        filename,
		Success:         true,
		TotalReceived:   len(items),
		ValidRecords:    len(accepted),
		DuplicatesFound: len(rejected),
		DuplicateKeys:   rejected,
	}

	if len(accepted) > 0 {
		ctx = WithBatchInfo(ctx, BatchInfo{
			ID:              batchID,
			Filename:        filename,
			TotalReceived:   len(items),
			DuplicatesFound: len(rejected),
		})
		if err := s.inserter.InsertBatch(ctx, accepted); err != nil {
			out.Success = false
			out.Error = err.Error()
			log.Error("batch insert failed", slog.Int("records", len(accepted)), slog.Any("err", err))
		}
	}

	elapsed := s.now().Sub(start)
	if s.recorder != nil {
		s.recorder.ObserveIngest(out, elapsed)
	}
	log.Info("ingestion finished",
		slog.Bool("success", out.Success),
		slog.Int("total_received", out.TotalReceived),
		slog.Int("valid_records", out.ValidRecords),
		slog.Int("duplicates_found", out.DuplicatesFound),
		slog.Duration("elapsed", elapsed))
	return out
}
