package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/export"
)

type ExportResult struct {
	Filename  string        `json:"filename"`
	Location  string        `json:"location"`
	Format    export.Format `json:"format"`
	Records   int           `json:"records"`
	SizeBytes int           `json:"sizeBytes"`
}

type ExportService struct {
	analytics   *AnalyticsService
	storage     domain.ExportStorage
	concurrency int
	logger      *zap.Logger
}

func NewExportService(analytics *AnalyticsService, storage domain.ExportStorage, concurrency int, logger *zap.Logger) *ExportService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &ExportService{
		analytics:   analytics,
		storage:     storage,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Export writes one user's completion data for the range ending on now's day.
// Every failure comes back wrapped in domain.ErrExportFailed.
func (s *ExportService) Export(ctx context.Context, userID string, f export.Format, tr domain.TimeRange, includeMetadata bool, now time.Time) (*ExportResult, error) {
	payload, err := s.payload(ctx, userID, tr, now)
	if err != nil {
		return nil, s.fail(err, zap.String("user_id", userID))
	}
	return s.write(ctx, payload, f, includeMetadata, export.Filename(userID, tr, f, now))
}

// ExportBatch merges several users into one file, in request order. Users
// are read in one query when the log store supports it, otherwise
// concurrently up to the configured limit.
func (s *ExportService) ExportBatch(ctx context.Context, userIDs []string, f export.Format, tr domain.TimeRange, now time.Time) (*ExportResult, error) {
	if len(userIDs) == 0 {
		return nil, s.fail(domain.ErrEmptyBatch)
	}

	payloads, err := s.batchPayloads(ctx, userIDs, tr, now)
	if err != nil {
		return nil, s.fail(err, zap.Int("users", len(userIDs)))
	}

	merged := export.MergeBatch(payloads, tr, now)
	return s.write(ctx, merged, f, true, export.BatchFilename(len(userIDs), tr, f, now))
}

func (s *ExportService) batchPayloads(ctx context.Context, userIDs []string, tr domain.TimeRange, now time.Time) ([]export.Payload, error) {
	payloads := make([]export.Payload, len(userIDs))

	byUser, ok, err := s.analytics.CompletionDataForUsers(ctx, userIDs, tr.Window(domain.DateOf(now.UTC())))
	if err != nil {
		return nil, err
	}
	if ok {
		for i, id := range userIDs {
			payloads[i] = export.NewPayload(id, tr, byUser[id], now)
		}
		return payloads, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, id := range userIDs {
		g.Go(func() error {
			p, err := s.payload(gctx, id, tr, now)
			if err != nil {
				return fmt.Errorf("user %s: %w", id, err)
			}
			payloads[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return payloads, nil
}

func (s *ExportService) payload(ctx context.Context, userID string, tr domain.TimeRange, now time.Time) (export.Payload, error) {
	data, err := s.analytics.CompletionData(ctx, userID, tr.Window(domain.DateOf(now.UTC())))
	if err != nil {
		return export.Payload{}, err
	}
	return export.NewPayload(userID, tr, data, now), nil
}

func (s *ExportService) write(ctx context.Context, p export.Payload, f export.Format, includeMetadata bool, filename string) (*ExportResult, error) {
	content, err := export.Encode(p, f, includeMetadata)
	if err != nil {
		return nil, s.fail(err, zap.String("file", filename))
	}
	location, err := s.storage.Save(ctx, filename, content)
	if err != nil {
		return nil, s.fail(err, zap.String("file", filename))
	}
	return &ExportResult{
		Filename:  filename,
		Location:  location,
		Format:    f,
		Records:   p.Metadata.TotalRecords,
		SizeBytes: len(content),
	}, nil
}

func (s *ExportService) fail(cause error, fields ...zap.Field) error {
	s.logger.Error("export failed", append(fields, zap.Error(cause))...)
	return fmt.Errorf("%w: %s", domain.ErrExportFailed, cause)
}
