package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/salesops/backend/internal/domain/access"
	"github.com/salesops/backend/internal/domain/shared"
	"github.com/salesops/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// ErrExportUnavailable is returned when no snapshot storage is configured
var ErrExportUnavailable = shared.NewDomainError("EXPORT_UNAVAILABLE", "Report snapshot export is not configured")

// DefaultSnapshotExpiry is used when an export does not ask for a link lifetime
const DefaultSnapshotExpiry = 15 * time.Minute

// SnapshotStorage stores report snapshots and hands out download links
type SnapshotStorage interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	GenerateDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error)
}

// Snapshot describes an exported report
type Snapshot struct {
	Key         string    `json:"key"`
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
	Rows        int       `json:"rows"`
}

// CanExport reports whether snapshot storage is configured
func (s *SalesHistoryService) CanExport() bool {
	return s.storage != nil
}

// ExportSnapshot runs the report and stores its JSON rendition under
// reports/<effective owner>/. The returned link expires after expiresIn.
func (s *SalesHistoryService) ExportSnapshot(ctx context.Context, identity access.IdentityContext, req Request, expiresIn time.Duration) (*Snapshot, error) {
	if s.storage == nil {
		return nil, ErrExportUnavailable
	}
	if expiresIn <= 0 {
		expiresIn = DefaultSnapshotExpiry
	}

	result, err := s.Run(ctx, identity, req)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode report snapshot: %w", err)
	}

	key := fmt.Sprintf("reports/%s/%s.json", result.EffectiveOwner, uuid.NewString())
	if err := s.storage.Upload(ctx, key, data, "application/json"); err != nil {
		return nil, fmt.Errorf("failed to upload report snapshot: %w", err)
	}
	url, expiresAt, err := s.storage.GenerateDownloadURL(ctx, key, expiresIn)
	if err != nil {
		return nil, fmt.Errorf("failed to sign report snapshot link: %w", err)
	}

	logger.WithLogger(ctx, s.logger).Info("Report snapshot exported",
		zap.String("key", key),
		zap.Int("bytes", len(data)),
		zap.Time("expires_at", expiresAt),
	)
	return &Snapshot{Key: key, DownloadURL: url, ExpiresAt: expiresAt, Rows: len(result.Rows)}, nil
}
