package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"lotkeeper/internal/core/id"
	"lotkeeper/internal/domain/audit"
)

// CompressionAlgo specifies the compression algorithm used.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// DefaultCompressThreshold is the snapshot size above which zstd is applied.
const DefaultCompressThreshold = 8 * 1024

// AuditRow is a sys_audit row with the snapshot decompressed.
type AuditRow struct {
	ID                 id.ID           `db:"id"`
	EntityType         string          `db:"entity_type"`
	EntityID           id.ID           `db:"entity_id"`
	Action             string          `db:"action"`
	Snapshot           json.RawMessage `db:"snapshot"`
	SnapshotCompressed []byte          `db:"snapshot_compressed"`
	Changes            json.RawMessage `db:"changes"`
	CompressionAlgo    CompressionAlgo `db:"compression_algo"`
	CreatedAt          time.Time       `db:"created_at"`
}

var _ audit.Recorder = (*AuditRecorder)(nil)

// AuditRecorder implements audit.Recorder on sys_audit.
// Large document snapshots (sales with many allocations) are stored zstd compressed.
type AuditRecorder struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

// NewAuditRecorder creates a recorder; threshold <= 0 selects DefaultCompressThreshold.
func NewAuditRecorder(txManager *TxManager, threshold int) (*AuditRecorder, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	if threshold <= 0 {
		threshold = DefaultCompressThreshold
	}

	return &AuditRecorder{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: threshold,
	}, nil
}

// Record implements audit.Recorder.
func (r *AuditRecorder) Record(ctx context.Context, entry audit.Entry) error {
	if id.IsNil(entry.ID) {
		entry.ID = id.New()
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}

	snapshot, err := marshalNullable(entry.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	changes, err := marshalNullable(entry.Changes)
	if err != nil {
		return fmt.Errorf("marshal changes: %w", err)
	}

	algo := CompressionNone
	var compressed []byte
	if len(snapshot) > r.compressThreshold {
		compressed = r.encoder.EncodeAll(snapshot, nil)
		snapshot = nil
		algo = CompressionZstd
	}

	_, err = r.txManager.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO sys_audit (
			id, entity_type, entity_id, action,
			snapshot, snapshot_compressed, changes, compression_algo,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, entry.ID, entry.EntityType, entry.EntityID, string(entry.Action),
		snapshot, compressed, changes, algo,
		entry.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// History returns the audit rows of an entity, newest first.
func (r *AuditRecorder) History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]AuditRow, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.txManager.GetQuerier(ctx).Query(ctx, `
		SELECT id, entity_type, entity_id, action,
		       snapshot, snapshot_compressed, changes, compression_algo,
		       created_at
		FROM sys_audit
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []AuditRow
	for rows.Next() {
		var e AuditRow
		if err := rows.Scan(
			&e.ID, &e.EntityType, &e.EntityID, &e.Action,
			&e.Snapshot, &e.SnapshotCompressed, &e.Changes, &e.CompressionAlgo,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}

		if e.CompressionAlgo == CompressionZstd && len(e.SnapshotCompressed) > 0 {
			decompressed, err := r.decoder.DecodeAll(e.SnapshotCompressed, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress snapshot: %w", err)
			}
			e.Snapshot = decompressed
			e.SnapshotCompressed = nil
		}

		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func marshalNullable(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
