// Package documents stores content collections as JSONB rows in PostgreSQL.
package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/folio/internal/common"
	"github.com/dmitrijs2005/folio/internal/dbx"
	"github.com/dmitrijs2005/folio/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context, collection string) ([]*models.Document, error) {
	query :=
		`SELECT id, ord, fields, created_at, updated_at FROM documents
		 WHERE collection = $1
		 ORDER BY ord ASC, created_at DESC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, collection)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	docs := make([]*models.Document, 0)
	for rows.Next() {
		d := &models.Document{Collection: collection}
		var raw []byte
		if err := rows.Scan(&d.ID, &d.Order, &raw, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		if d.Fields, err = decodeFields(raw); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return docs, nil
}

func (r *PostgresRepository) Get(ctx context.Context, collection, id string) (*models.Document, error) {
	query :=
		`SELECT id, ord, fields, created_at, updated_at FROM documents
		 WHERE collection = $1 AND id = $2`

	return r.scanOne(r.db.QueryRowContext(ctx, query, collection, id), collection)
}

func (r *PostgresRepository) Create(ctx context.Context, doc *models.Document, order *int) (*models.Document, error) {
	fields, err := json.Marshal(nonNil(doc.Fields))
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}

	// The count and the insert share one statement.
	query :=
		`INSERT INTO documents (id, collection, ord, fields)
		 SELECT $1, $2, COALESCE($3::integer, (SELECT COUNT(*) FROM documents WHERE collection = $2)::integer), $4::jsonb
		 RETURNING ord, created_at, updated_at`

	err = r.db.QueryRowContext(ctx, query, doc.ID, doc.Collection, order, string(fields)).
		Scan(&doc.Order, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return doc, nil
}

func (r *PostgresRepository) Update(ctx context.Context, collection, id string, patch map[string]any, order *int) (*models.Document, error) {
	fields, err := json.Marshal(nonNil(patch))
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}

	query :=
		`UPDATE documents
		 SET fields = fields || $3::jsonb, ord = COALESCE($4::integer, ord), updated_at = now()
		 WHERE collection = $1 AND id = $2
		 RETURNING id, ord, fields, created_at, updated_at`

	return r.scanOne(r.db.QueryRowContext(ctx, query, collection, id, string(fields), order), collection)
}

func (r *PostgresRepository) SetOrder(ctx context.Context, collection, id string, order int) (bool, error) {
	query :=
		`UPDATE documents SET ord = $3, updated_at = now()
		 WHERE collection = $1 AND id = $2`

	return r.execAffected(ctx, query, collection, id, order)
}

func (r *PostgresRepository) Delete(ctx context.Context, collection, id string) (bool, error) {
	query := `DELETE FROM documents WHERE collection = $1 AND id = $2`

	return r.execAffected(ctx, query, collection, id)
}

func (r *PostgresRepository) execAffected(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) scanOne(row *sql.Row, collection string) (*models.Document, error) {
	d := &models.Document{Collection: collection}
	var raw []byte

	err := row.Scan(&d.ID, &d.Order, &raw, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if d.Fields, err = decodeFields(raw); err != nil {
		return nil, err
	}
	return d, nil
}

func decodeFields(raw []byte) (map[string]any, error) {
	fields := map[string]any{}
	if len(raw) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	return fields, nil
}

func nonNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
