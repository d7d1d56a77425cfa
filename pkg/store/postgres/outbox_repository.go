package postgres

import (
	"context"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/flowline/flowline/pkg/model"
)

// OutboxRepository is the durable outbox for one aggregate family. One
// implementation backs both the workflow and user outboxes; the table name is
// the only difference between them.
type OutboxRepository struct {
	db    *gorm.DB
	table string
}

func NewOutboxRepository(db *gorm.DB, table string) *OutboxRepository {
	return &OutboxRepository{db: db, table: table}
}

func NewWorkflowOutboxRepository(db *gorm.DB) *OutboxRepository {
	return NewOutboxRepository(db, model.WorkflowOutboxTable)
}

func NewUserOutboxRepository(db *gorm.DB) *OutboxRepository {
	return NewOutboxRepository(db, model.UserOutboxTable)
}

func (r *OutboxRepository) Insert(ctx context.Context, msg *model.OutboxMessage) error {
	return r.insert(r.db.WithContext(ctx), msg)
}

// InsertTx writes the row within the caller's transaction, next to the
// aggregate's own state change.
func (r *OutboxRepository) InsertTx(tx *gorm.DB, msg *model.OutboxMessage) error {
	return r.insert(tx, msg)
}

func (r *OutboxRepository) insert(db *gorm.DB, msg *model.OutboxMessage) error {
	// The id is the event id, assigned before the row exists; retrying the
	// insert hits the conflict and is a no-op.
	return db.Table(r.table).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(msg).Error
}

// Update persists delivery bookkeeping only; the event itself is immutable.
func (r *OutboxRepository) Update(ctx context.Context, msg *model.OutboxMessage) error {
	updates := map[string]interface{}{
		"processed_on": msg.ProcessedOn,
		"error":        msg.Error,
		"retry_count":  msg.RetryCount,
	}
	return r.db.WithContext(ctx).
		Table(r.table).
		Where("id = ?", msg.ID).
		Updates(updates).Error
}

// ListUnprocessed returns the oldest pending rows first; seq breaks ties so
// rows from one commit come back in insertion order.
func (r *OutboxRepository) ListUnprocessed(ctx context.Context, limit int) ([]model.OutboxMessage, error) {
	if limit <= 0 {
		limit = 20
	}
	var messages []model.OutboxMessage
	err := r.db.WithContext(ctx).
		Table(r.table).
		Where("processed_on IS NULL").
		Order("occurred_on ASC, seq ASC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

// DeleteProcessedBefore prunes delivered rows older than cutoff. Rows with a
// null processed_on are kept regardless of age.
func (r *OutboxRepository) DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Exec(
		"DELETE FROM "+pq.QuoteIdentifier(r.table)+" WHERE processed_on IS NOT NULL AND occurred_on < ?",
		cutoff,
	)
	return result.RowsAffected, result.Error
}
