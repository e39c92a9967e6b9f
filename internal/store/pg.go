package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pharmatrace/pt-indexer/internal/domain"
	"github.com/pharmatrace/pt-indexer/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a gorm-backed Store
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// AutoMigrate creates or updates the tables backing the Store
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&schema.Batch{},
		&schema.EventLog{},
		&schema.SyncState{},
		&schema.AlertQueue{},
		&schema.DeadLetter{},
	)
}

// ConfigureConnectionPool applies connection pool settings to the underlying sql.DB
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime =
		NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// NormalizeConnectionPoolSettings applies defaults and clamps pool settings into safe values.
//
// Defaults (when zero):
//   - MaxOpenConns: 20
//   - MaxIdleConns: 5
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
//
// Notes:
//   - database/sql treats MaxOpenConns=0 as "unlimited"
//   - database/sql treats MaxIdleConns=0 as "no idle connections"
func NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (int, int, time.Duration, time.Duration) {
	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	// MaxIdleConns above MaxOpenConns has no effect
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	return maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime
}

func (s *pgStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&pgStore{db: tx})
	})
}

func (s *pgStore) GetBatch(ctx context.Context, batchID uint64) (*schema.Batch, error) {
	var batch schema.Batch
	if err := s.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		First(&batch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &batch, nil
}

func (s *pgStore) GetBatchByNumber(ctx context.Context, batchNumber string) (*schema.Batch, error) {
	var batch schema.Batch
	if err := s.db.WithContext(ctx).
		Where("batch_number = ?", batchNumber).
		First(&batch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &batch, nil
}

func (s *pgStore) GetBatchesByOwner(ctx context.Context, filter BatchFilter) ([]*schema.Batch, int64, error) {
	query := s.db.WithContext(ctx).Model(&schema.Batch{}).
		Where("owner = ?", domain.NormalizeAddress(filter.Owner))
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var batches []*schema.Batch
	if err := query.
		Order("created_at DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&batches).Error; err != nil {
		return nil, 0, err
	}
	return batches, total, nil
}

func (s *pgStore) SearchBatches(ctx context.Context, query string, limit int) ([]*schema.Batch, error) {
	if limit <= 0 || limit > domain.SEARCH_PAGE_SIZE {
		limit = domain.SEARCH_PAGE_SIZE
	}
	pattern := "%" + query + "%"

	var batches []*schema.Batch
	if err := s.db.WithContext(ctx).
		Where("LOWER(product_name) LIKE LOWER(?) OR LOWER(manufacturer) LIKE LOWER(?) OR LOWER(batch_number) LIKE LOWER(?)",
			pattern, pattern, pattern).
		Order("created_at DESC").
		Limit(limit).
		Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

func (s *pgStore) GetChildBatches(ctx context.Context, parentIDs []uint64) ([]*schema.Batch, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}
	var batches []*schema.Batch
	if err := s.db.WithContext(ctx).
		Where("parent_batch_id IN ?", parentIDs).
		Order("batch_id ASC").
		Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

func (s *pgStore) CreateBatch(ctx context.Context, batch *schema.Batch) error {
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "batch_id"}},
			DoNothing: true,
		}).
		Create(batch)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrBatchAlreadyExists
	}
	return nil
}

func (s *pgStore) SaveBatch(ctx context.Context, batch *schema.Batch) error {
	return s.db.WithContext(ctx).Save(batch).Error
}

func (s *pgStore) CountBatches(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&schema.Batch{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *pgStore) InsertEventLog(ctx context.Context, row *schema.EventLog) error {
	if row.ProcessedAt.IsZero() {
		row.ProcessedAt = time.Now()
	}
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tx_hash"}, {Name: "log_index"}},
			DoNothing: true,
		}).
		Create(row)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrDuplicateEvent
	}
	return nil
}

func (s *pgStore) GetEventLog(ctx context.Context, txHash string, logIndex uint) (*schema.EventLog, error) {
	var row schema.EventLog
	if err := s.db.WithContext(ctx).
		Where("tx_hash = ? AND log_index = ?", txHash, logIndex).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (s *pgStore) UpsertEventLog(ctx context.Context, row *schema.EventLog) error {
	if row.ProcessedAt.IsZero() {
		row.ProcessedAt = time.Now()
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tx_hash"}, {Name: "log_index"}},
			Where: clause.Where{
				Exprs: []clause.Expression{
					clause.Neq{
						Column: clause.Column{Table: "event_logs", Name: "status"},
						Value:  string(schema.EventLogStatusProcessed),
					},
				},
			},
			DoUpdates: clause.AssignmentColumns([]string{"status", "error", "attempts", "processed_at"}),
		}).
		Create(row).Error
}

func (s *pgStore) ListEventLogs(ctx context.Context, filter EventLogFilter) ([]*schema.EventLog, int64, error) {
	query := s.db.WithContext(ctx).Model(&schema.EventLog{})
	if filter.EventName != nil {
		query = query.Where("event_name = ?", *filter.EventName)
	}
	if filter.BatchID != nil {
		query = query.Where("batch_id = ?", *filter.BatchID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []*schema.EventLog
	if err := query.
		Order("block_number DESC, log_index DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (s *pgStore) GetSyncState(ctx context.Context) (*schema.SyncState, error) {
	var state schema.SyncState
	err := s.db.WithContext(ctx).
		Where("id = ?", schema.SyncStateID).
		First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		state = schema.SyncState{ID: schema.SyncStateID}
		if err := s.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&state).Error; err != nil {
			return nil, err
		}
		return &state, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *pgStore) InitSyncState(ctx context.Context, contractAddress string, chainID uint64) error {
	if _, err := s.GetSyncState(ctx); err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Model(&schema.SyncState{}).
		Where("id = ?", schema.SyncStateID).
		Updates(map[string]interface{}{
			"contract_address": domain.NormalizeAddress(contractAddress),
			"chain_id":         chainID,
		}).Error
}

func (s *pgStore) AdvanceCursor(ctx context.Context, blockNumber uint64) error {
	result := s.db.WithContext(ctx).
		Model(&schema.SyncState{}).
		Where("id = ? AND last_processed_block <= ?", schema.SyncStateID, blockNumber).
		Updates(map[string]interface{}{
			"last_processed_block": blockNumber,
			"last_synced_at":       time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("cursor not advanced to block %d", blockNumber)
	}
	return nil
}

func (s *pgStore) TryEnterSync(ctx context.Context) (bool, error) {
	if _, err := s.GetSyncState(ctx); err != nil {
		return false, err
	}
	result := s.db.WithContext(ctx).
		Model(&schema.SyncState{}).
		Where("id = ? AND is_syncing = ?", schema.SyncStateID, false).
		Update("is_syncing", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (s *pgStore) ExitSync(ctx context.Context) error {
	return s.db.WithContext(ctx).
		Model(&schema.SyncState{}).
		Where("id = ?", schema.SyncStateID).
		Update("is_syncing", false).Error
}

func (s *pgStore) EnqueueAlert(ctx context.Context, alert *schema.AlertQueue) (bool, error) {
	if alert.Status == "" {
		alert.Status = schema.AlertStatusPending
	}
	alert.Recipient = domain.NormalizeAddress(alert.Recipient)
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "batch_id"}, {Name: "recipient"}, {Name: "alert_type"}},
			DoNothing: true,
		}).
		Create(alert)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (s *pgStore) GetPendingAlerts(ctx context.Context, now time.Time, limit int) ([]*schema.AlertQueue, error) {
	var alerts []*schema.AlertQueue
	if err := s.db.WithContext(ctx).
		Where("status = ?", schema.AlertStatusPending).
		Where("next_attempt_at IS NULL OR next_attempt_at <= ?", now).
		Order("created_at ASC").
		Limit(limit).
		Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}

func (s *pgStore) UpdateAlertDelivery(ctx context.Context, id uint64, status schema.AlertStatus, attempts int, nextAttemptAt *time.Time, errMsg *string) error {
	return s.db.WithContext(ctx).
		Model(&schema.AlertQueue{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":          status,
			"attempts":        attempts,
			"next_attempt_at": nextAttemptAt,
			"error":           errMsg,
		}).Error
}

func (s *pgStore) GetAlertsByBatch(ctx context.Context, batchID uint64) ([]*schema.AlertQueue, error) {
	var alerts []*schema.AlertQueue
	if err := s.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("created_at ASC").
		Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}

func (s *pgStore) CreateDeadLetter(ctx context.Context, entry *schema.DeadLetter) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tx_hash"}, {Name: "log_index"}},
			DoNothing: true,
		}).
		Create(entry).Error
}

func (s *pgStore) ListDeadLetters(ctx context.Context, limit, offset int) ([]*schema.DeadLetter, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&schema.DeadLetter{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var entries []*schema.DeadLetter
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
