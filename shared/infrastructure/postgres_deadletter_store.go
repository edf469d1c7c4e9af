package infrastructure

import (
	"context"
	"encoding/json"
	"time"

	"github.com/globalbooks/fulfillment-system/shared/models"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// DeadLetter is a message that exhausted its delivery attempts, kept for
// manual reconciliation.
type DeadLetter struct {
	ID         models.ID       `json:"id"`
	Queue      string          `json:"queue"`
	RoutingKey string          `json:"routing_key"`
	Exchange   string          `json:"exchange"`
	Body       json.RawMessage `json:"body"`
	Headers    map[string]any  `json:"headers"`
	Reason     string          `json:"reason"`
	DeadAt     time.Time       `json:"dead_at"`
	Reconciled bool            `json:"reconciled"`
}

// DeadLetterStore persists dead lettered messages.
type DeadLetterStore interface {
	Save(ctx context.Context, letter *DeadLetter) error
	FindUnreconciled(ctx context.Context, limit int) ([]*DeadLetter, error)
	MarkReconciled(ctx context.Context, id models.ID) error
}

// PostgresDeadLetterStore implements DeadLetterStore using PostgreSQL
type PostgresDeadLetterStore struct {
	db *sqlx.DB
}

// NewPostgresDeadLetterStore creates a new PostgresDeadLetterStore
func NewPostgresDeadLetterStore(db *sqlx.DB) *PostgresDeadLetterStore {
	return &PostgresDeadLetterStore{db: db}
}

type postgresDeadLetter struct {
	ID         string    `db:"id"`
	Queue      string    `db:"queue"`
	RoutingKey string    `db:"routing_key"`
	Exchange   string    `db:"exchange"`
	Body       []byte    `db:"body"`
	Headers    []byte    `db:"headers"`
	Reason     string    `db:"reason"`
	DeadAt     time.Time `db:"dead_at"`
	Reconciled bool      `db:"reconciled"`
}

// Save persists a dead letter. Saving the same message twice is harmless:
// the primary key makes redelivered stores a no-op.
func (s *PostgresDeadLetterStore) Save(ctx context.Context, letter *DeadLetter) error {
	headers, err := json.Marshal(letter.Headers)
	if err != nil {
		return errors.Wrap(err, "failed to marshal headers")
	}

	query := `
		INSERT INTO dead_letters (
			id, queue, routing_key, exchange, body, headers, reason, dead_at, reconciled
		) VALUES (
			:id, :queue, :routing_key, :exchange, :body, :headers, :reason, :dead_at, :reconciled
		)
		ON CONFLICT (id) DO NOTHING`

	_, err = s.db.NamedExecContext(ctx, query, &postgresDeadLetter{
		ID:         letter.ID.String(),
		Queue:      letter.Queue,
		RoutingKey: letter.RoutingKey,
		Exchange:   letter.Exchange,
		Body:       letter.Body,
		Headers:    headers,
		Reason:     letter.Reason,
		DeadAt:     letter.DeadAt,
		Reconciled: letter.Reconciled,
	})
	if err != nil {
		return errors.Wrap(err, "failed to insert dead letter")
	}

	return nil
}

// FindUnreconciled returns dead letters awaiting manual reconciliation.
func (s *PostgresDeadLetterStore) FindUnreconciled(ctx context.Context, limit int) ([]*DeadLetter, error) {
	query := `
		SELECT id, queue, routing_key, exchange, body, headers, reason, dead_at, reconciled
		FROM dead_letters
		WHERE reconciled = FALSE
		ORDER BY dead_at ASC
		LIMIT $1`

	var rows []postgresDeadLetter
	if err := s.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, errors.Wrap(err, "failed to get dead letters")
	}

	letters := make([]*DeadLetter, len(rows))
	for i, row := range rows {
		letter, err := toDeadLetter(&row)
		if err != nil {
			return nil, err
		}
		letters[i] = letter
	}

	return letters, nil
}

// MarkReconciled flags a dead letter as manually handled.
func (s *PostgresDeadLetterStore) MarkReconciled(ctx context.Context, id models.ID) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE dead_letters SET reconciled = TRUE WHERE id = $1", id.String())
	if err != nil {
		return errors.Wrap(err, "failed to mark dead letter reconciled")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return errors.Errorf("dead letter %s not found", id)
	}

	return nil
}

func toDeadLetter(row *postgresDeadLetter) (*DeadLetter, error) {
	var headers map[string]any
	if len(row.Headers) > 0 {
		if err := json.Unmarshal(row.Headers, &headers); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal headers")
		}
	}

	return &DeadLetter{
		ID:         models.ID(row.ID),
		Queue:      row.Queue,
		RoutingKey: row.RoutingKey,
		Exchange:   row.Exchange,
		Body:       row.Body,
		Headers:    headers,
		Reason:     row.Reason,
		DeadAt:     row.DeadAt,
		Reconciled: row.Reconciled,
	}, nil
}
