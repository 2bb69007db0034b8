package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"idsync/internal/directory/models"
	id "idsync/pkg/domain"
	txcontext "idsync/pkg/platform/tx"
)

const accountColumns = `id, username, external_id, auth_domain, suspended, deleted, pending_activation,
	last_access_at, last_login_at, created_at, updated_at`

// PostgresStore persists directory accounts in PostgreSQL.
// This store is pure I/O; policy (who to suspend, who survives) belongs in the
// reconcile service.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgres(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type accountRow struct {
	ID                int64          `db:"id"`
	Username          string         `db:"username"`
	ExternalID        sql.NullString `db:"external_id"`
	AuthDomain        string         `db:"auth_domain"`
	Suspended         bool           `db:"suspended"`
	Deleted           bool           `db:"deleted"`
	PendingActivation bool           `db:"pending_activation"`
	LastAccessAt      sql.NullTime   `db:"last_access_at"`
	LastLoginAt       sql.NullTime   `db:"last_login_at"`
	CreatedAt         sql.NullTime   `db:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at"`
}

func (r accountRow) toModel() *models.Account {
	return &models.Account{
		ID:                id.AccountID(r.ID),
		Username:          r.Username,
		ExternalID:        id.NewExternalID(r.ExternalID.String),
		AuthDomain:        models.AuthDomain(r.AuthDomain),
		Suspended:         r.Suspended,
		Deleted:           r.Deleted,
		PendingActivation: r.PendingActivation,
		LastAccessAt:      r.LastAccessAt.Time,
		LastLoginAt:       r.LastLoginAt.Time,
		CreatedAt:         r.CreatedAt.Time,
		UpdatedAt:         r.UpdatedAt,
	}
}

func (s *PostgresStore) conn(ctx context.Context) sqlx.ExtContext {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// RunInTx executes fn inside one transaction. The transaction is carried in
// ctx so every store call made by fn joins it; any error rolls back.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txcontext.From(ctx); ok {
		return fn(ctx)
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Create inserts account and returns its assigned ID.
func (s *PostgresStore) Create(ctx context.Context, account *models.Account) (id.AccountID, error) {
	if account == nil {
		return 0, fmt.Errorf("account is required")
	}
	query := `
		INSERT INTO accounts (username, external_id, auth_domain, suspended, deleted, pending_activation,
			last_access_at, last_login_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING id
	`
	var newID int64
	err := sqlx.GetContext(ctx, s.conn(ctx), &newID, query,
		account.Username,
		nullString(id.NewExternalID(account.ExternalID.String()).String()),
		string(account.AuthDomain),
		account.Suspended,
		account.Deleted,
		account.PendingActivation,
		nullTime(account.LastAccessAt),
		nullTime(account.LastLoginAt),
		nullTime(account.CreatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("create account: %w", err)
	}
	return id.AccountID(newID), nil
}

// Get returns the account regardless of its state.
func (s *PostgresStore) Get(ctx context.Context, accountID id.AccountID) (*models.Account, error) {
	var row accountRow
	err := sqlx.GetContext(ctx, s.conn(ctx), &row, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, int64(accountID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return row.toModel(), nil
}

func (s *PostgresStore) FindMigrationCandidates(ctx context.Context, filter models.MigrationFilter) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + `
		FROM accounts
		WHERE deleted = FALSE
		  AND suspended = FALSE
		  AND auth_domain NOT IN ($1, $2)
		  AND COALESCE(TRIM(external_id), '') <> ''
		  AND NOT (id = ANY($3))
		ORDER BY id
	`
	var rows []accountRow
	err := sqlx.SelectContext(ctx, s.conn(ctx), &rows, query,
		string(models.AuthDomainManaged),
		string(models.AuthDomainDisabled),
		pq.Array(accountIDs(filter.ExcludeIDs)),
	)
	if err != nil {
		return nil, fmt.Errorf("find migration candidates: %w", err)
	}
	return toModels(rows), nil
}

func (s *PostgresStore) MigrateToManaged(ctx context.Context, accountID id.AccountID, now time.Time) error {
	query := `
		UPDATE accounts
		SET auth_domain = $2, updated_at = $3
		WHERE id = $1
		  AND deleted = FALSE
		  AND auth_domain NOT IN ($2, $4)
	`
	result, err := s.conn(ctx).ExecContext(ctx, query,
		int64(accountID),
		string(models.AuthDomainManaged),
		now,
		string(models.AuthDomainDisabled),
	)
	if err != nil {
		return fmt.Errorf("migrate account %s: %w", accountID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("migrate account %s rows affected: %w", accountID, err)
	}
	if rows == 0 {
		return fmt.Errorf("migrate account %s: %w", accountID, ErrInvalidState)
	}
	return nil
}

func (s *PostgresStore) FindManagedAccounts(ctx context.Context) ([]*models.Account, error) {
	var rows []accountRow
	err := sqlx.SelectContext(ctx, s.conn(ctx), &rows, `SELECT `+accountColumns+`
		FROM accounts
		WHERE deleted = FALSE AND auth_domain = $1
		ORDER BY id`, string(models.AuthDomainManaged))
	if err != nil {
		return nil, fmt.Errorf("find managed accounts: %w", err)
	}
	return toModels(rows), nil
}

// FindByExternalID returns the lowest-ID managed, non-deleted account linked
// to externalID.
func (s *PostgresStore) FindByExternalID(ctx context.Context, externalID id.ExternalID) (*models.Account, error) {
	var row accountRow
	err := sqlx.GetContext(ctx, s.conn(ctx), &row, `SELECT `+accountColumns+`
		FROM accounts
		WHERE deleted = FALSE AND auth_domain = $1 AND TRIM(external_id) = $2
		ORDER BY id
		LIMIT 1`, string(models.AuthDomainManaged), id.NewExternalID(externalID.String()).String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find account by external id: %w", err)
	}
	return row.toModel(), nil
}

// ApplyBatch applies mutations atomically. Every targeted account must still
// be managed and not deleted, otherwise the whole batch rolls back.
func (s *PostgresStore) ApplyBatch(ctx context.Context, mutations []models.Mutation, now time.Time) error {
	var suspend, pending []int64
	for _, m := range mutations {
		switch m.Kind {
		case models.MutationSuspend:
			suspend = append(suspend, int64(m.AccountID))
		case models.MutationPendingActivation:
			pending = append(pending, int64(m.AccountID))
		default:
			return fmt.Errorf("unknown mutation kind %q", m.Kind)
		}
	}

	return s.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.setFlag(ctx, "suspended", suspend, now); err != nil {
			return err
		}
		return s.setFlag(ctx, "pending_activation", pending, now)
	})
}

func (s *PostgresStore) SetPendingActivationFlag(ctx context.Context, accountID id.AccountID) error {
	return s.RunInTx(ctx, func(ctx context.Context) error {
		return s.setFlag(ctx, "pending_activation", []int64{int64(accountID)}, time.Now())
	})
}

// setFlag sets a boolean column for ids. column is never user input.
func (s *PostgresStore) setFlag(ctx context.Context, column string, ids []int64, now time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	query := fmt.Sprintf(`
		UPDATE accounts
		SET %s = TRUE, updated_at = $2
		WHERE id = ANY($1) AND deleted = FALSE AND auth_domain = $3
	`, column)
	result, err := s.conn(ctx).ExecContext(ctx, query, pq.Array(ids), now, string(models.AuthDomainManaged))
	if err != nil {
		return fmt.Errorf("set %s: %w", column, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set %s rows affected: %w", column, err)
	}
	if rows != int64(countDistinct(ids)) {
		return fmt.Errorf("set %s: %d of %d accounts eligible: %w", column, rows, countDistinct(ids), ErrInvalidState)
	}
	return nil
}

func toModels(rows []accountRow) []*models.Account {
	out := make([]*models.Account, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out
}

func accountIDs(ids []id.AccountID) []int64 {
	out := make([]int64, 0, len(ids))
	for _, x := range ids {
		out = append(out, int64(x))
	}
	return out
}

func countDistinct(ids []int64) int {
	seen := make(map[int64]struct{}, len(ids))
	for _, x := range ids {
		seen[x] = struct{}{}
	}
	return len(seen)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
