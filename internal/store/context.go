package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Harshitk-cp/credence/internal/domain"
	"github.com/Harshitk-cp/credence/internal/rdf"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ContextStore struct {
	db *pgxpool.Pool
}

func NewContextStore(db *pgxpool.Pool) *ContextStore {
	return &ContextStore{db: db}
}

func (s *ContextStore) Save(ctx context.Context, c *domain.StoredContext) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.FetchedAt.IsZero() {
		c.FetchedAt = time.Now().UTC()
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// A subject holds one context per role, and a context id once.
	_, err = tx.Exec(ctx,
		`DELETE FROM contexts WHERE subject = $1 AND (role = $2 OR context_id = $3)`,
		c.Subject, c.Role, c.ContextID,
	)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO contexts (id, subject, context_id, role, fetched_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.Subject, c.ContextID, c.Role, c.FetchedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return err
	}

	triples := c.Graph.Triples()
	if len(triples) > 0 {
		rows := make([][]any, len(triples))
		for i, t := range triples {
			rows[i] = []any{c.ID, i, t.Subject.String(), t.Predicate.String(), t.Object.String()}
		}
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"statements"},
			[]string{"context_row_id", "position", "subject", "predicate", "object"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("copy statements: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (s *ContextStore) ListBySubject(ctx context.Context, subject domain.Subject) ([]domain.StoredContext, error) {
	rows, err := s.db.Query(ctx,
		`SELECT c.id, c.context_id, c.role, c.fetched_at, st.subject, st.predicate, st.object
		 FROM contexts c
		 LEFT JOIN statements st ON st.context_row_id = c.id
		 WHERE c.subject = $1
		 ORDER BY c.role, c.id, st.position`,
		subject,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contexts []domain.StoredContext
	var current *domain.StoredContext
	for rows.Next() {
		var (
			id             uuid.UUID
			contextID      string
			role           string
			fetchedAt      time.Time
			sub, pred, obj *string
		)
		if err := rows.Scan(&id, &contextID, &role, &fetchedAt, &sub, &pred, &obj); err != nil {
			return nil, err
		}

		if current == nil || current.ID != id {
			contexts = append(contexts, domain.StoredContext{
				ID:        id,
				Subject:   subject,
				ContextID: domain.ContextID(contextID),
				Role:      domain.Role(role),
				Graph:     rdf.NewGraph(),
				FetchedAt: fetchedAt,
			})
			current = &contexts[len(contexts)-1]
		}

		if sub == nil {
			continue
		}
		t, err := rdf.ParseStatement(*sub, *pred, *obj)
		if err != nil {
			return nil, fmt.Errorf("context %s: %w", contextID, err)
		}
		current.Graph.Add(t)
	}
	return contexts, rows.Err()
}

func (s *ContextStore) DeleteBySubject(ctx context.Context, subject domain.Subject) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM contexts WHERE subject = $1`, subject)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
