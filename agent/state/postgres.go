package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/tanpawarit/sparkpath-gateway/agent/contract"
)

var _ Store = (*PostgresStore)(nil)

type PostgresConfig struct {
	DSN             string        `envconfig:"DSN" split_words:"true" required:"true"`
	MaxOpenConns    int           `envconfig:"MAX_OPEN_CONNS" split_words:"true" default:"10"`
	MaxIdleConns    int           `envconfig:"MAX_IDLE_CONNS" split_words:"true" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"CONN_MAX_LIFETIME" split_words:"true" default:"5m"`
}

type sessionRow struct {
	bun.BaseModel `bun:"table:gateway_sessions,alias:s"`

	ID        string    `bun:"id,pk"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

type exchangeRow struct {
	bun.BaseModel `bun:"table:gateway_exchanges,alias:e"`

	SessionID    string                    `bun:"session_id,pk"`
	Seq          int64                     `bun:"seq,pk"`
	QueryText    string                    `bun:"query_text,notnull"`
	AudioRef     *contractx.AssetReference `bun:"audio_ref,type:jsonb"`
	SubmittedAt  time.Time                 `bun:"submitted_at,notnull"`
	ResponseText string                    `bun:"response_text,notnull"`
	Category     string                    `bun:"category,notnull"`
	AgentID      string                    `bun:"agent_id,notnull"`
	ReceivedAt   time.Time                 `bun:"received_at,notnull"`
}

func (r exchangeRow) exchange() contractx.Exchange {
	return contractx.Exchange{
		Seq: r.Seq,
		Query: contractx.Query{
			SessionID:   r.SessionID,
			Text:        r.QueryText,
			AudioRef:    r.AudioRef,
			SubmittedAt: r.SubmittedAt.UTC(),
		},
		Response: contractx.AgentResponse{
			Text:       r.ResponseText,
			Category:   contractx.Category(r.Category),
			AgentID:    r.AgentID,
			ReceivedAt: r.ReceivedAt.UTC(),
		},
	}
}

// PostgresStore keeps sessions in two tables. Appends lock the session row so sequence
// numbers are handed out one at a time per session.
type PostgresStore struct {
	db *bun.DB
}

func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqldb.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	store := &PostgresStore{db: bun.NewDB(sqldb, pgdialect.New())}
	if err := store.db.PingContext(ctx); err != nil {
		_ = store.db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := store.initSchema(ctx); err != nil {
		_ = store.db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (p *PostgresStore) initSchema(ctx context.Context) error {
	for _, model := range []any{(*sessionRow)(nil), (*exchangeRow)(nil)} {
		if _, err := p.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

func (p *PostgresStore) Close() error {
	return p.db.Close()
}

func (p *PostgresStore) Create(ctx context.Context, sessionID string, createdAt time.Time) error {
	if err := ValidateSessionID(sessionID); err != nil {
		return err
	}

	row := &sessionRow{ID: sessionID, CreatedAt: createdAt.UTC()}
	res, err := p.db.NewInsert().Model(row).On("CONFLICT (id) DO NOTHING").Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: insert session: %v", contractx.ErrUpstreamUnavailable, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionExists, sessionID)
	}
	return nil
}

func (p *PostgresStore) Exists(ctx context.Context, sessionID string) (bool, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return false, err
	}

	ok, err := p.db.NewSelect().Model((*sessionRow)(nil)).Where("id = ?", sessionID).Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: select session: %v", contractx.ErrUpstreamUnavailable, err)
	}
	return ok, nil
}

func (p *PostgresStore) Append(ctx context.Context, sessionID string, ex contractx.Exchange) (int64, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return 0, err
	}
	ex = normalizeExchange(sessionID, ex)

	var seq int64
	err := p.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var sess sessionRow
		if err := tx.NewSelect().Model(&sess).Where("id = ?", sessionID).For("UPDATE").Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: %s", contractx.ErrSessionNotFound, sessionID)
			}
			return fmt.Errorf("%w: lock session: %v", contractx.ErrUpstreamUnavailable, err)
		}

		var last int64
		if err := tx.NewSelect().
			Model((*exchangeRow)(nil)).
			ColumnExpr("COALESCE(MAX(seq), 0)").
			Where("session_id = ?", sessionID).
			Scan(ctx, &last); err != nil {
			return fmt.Errorf("%w: read last seq: %v", contractx.ErrUpstreamUnavailable, err)
		}

		row := &exchangeRow{
			SessionID:    sessionID,
			Seq:          last + 1,
			QueryText:    ex.Query.Text,
			AudioRef:     ex.Query.AudioRef,
			SubmittedAt:  ex.Query.SubmittedAt,
			ResponseText: ex.Response.Text,
			Category:     string(ex.Response.Category),
			AgentID:      ex.Response.AgentID,
			ReceivedAt:   ex.Response.ReceivedAt,
		}
		if _, err := tx.NewInsert().Model(row).Exec(ctx); err != nil {
			return fmt.Errorf("%w: insert exchange: %v", contractx.ErrUpstreamUnavailable, err)
		}
		seq = row.Seq
		return nil
	})
	if err != nil {
		return 0, err
	}
	return seq, nil
}

func (p *PostgresStore) Load(ctx context.Context, sessionID string) (contractx.SessionState, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return contractx.SessionState{}, err
	}

	var sess sessionRow
	if err := p.db.NewSelect().Model(&sess).Where("id = ?", sessionID).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return contractx.SessionState{}, fmt.Errorf("%w: %s", contractx.ErrSessionNotFound, sessionID)
		}
		return contractx.SessionState{}, fmt.Errorf("%w: select session: %v", contractx.ErrUpstreamUnavailable, err)
	}

	var rows []exchangeRow
	if err := p.db.NewSelect().
		Model(&rows).
		Where("session_id = ?", sessionID).
		Order("seq ASC").
		Scan(ctx); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return contractx.SessionState{}, fmt.Errorf("%w: select exchanges: %v", contractx.ErrUpstreamUnavailable, err)
	}

	st := NewSessionState(sess.ID, sess.CreatedAt)
	for _, row := range rows {
		st.Exchanges = append(st.Exchanges, row.exchange())
	}
	return st, nil
}

func (p *PostgresStore) Delete(ctx context.Context, sessionID string) error {
	if err := ValidateSessionID(sessionID); err != nil {
		return err
	}

	return p.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*exchangeRow)(nil)).Where("session_id = ?", sessionID).Exec(ctx); err != nil {
			return fmt.Errorf("%w: delete exchanges: %v", contractx.ErrUpstreamUnavailable, err)
		}
		if _, err := tx.NewDelete().Model((*sessionRow)(nil)).Where("id = ?", sessionID).Exec(ctx); err != nil {
			return fmt.Errorf("%w: delete session: %v", contractx.ErrUpstreamUnavailable, err)
		}
		return nil
	})
}
