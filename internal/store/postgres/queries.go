package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries runs the link statements against a DBTX.
type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

// LinkRow is a row of the links table.
type LinkRow struct {
	Code        string
	TargetUrl   string
	TotalClicks int64
	LastClicked pgtype.Timestamptz
	CreatedAt   pgtype.Timestamptz
}

const linkColumns = `code, target_url, total_clicks, last_clicked, created_at`

func scanLink(row pgx.Row) (LinkRow, error) {
	var l LinkRow
	err := row.Scan(&l.Code, &l.TargetUrl, &l.TotalClicks, &l.LastClicked, &l.CreatedAt)
	return l, err
}

const createLink = `-- name: CreateLink :one
INSERT INTO links (code, target_url)
VALUES ($1, $2)
RETURNING ` + linkColumns

type CreateLinkParams struct {
	Code      string
	TargetUrl string
}

func (q *Queries) CreateLink(ctx context.Context, arg CreateLinkParams) (LinkRow, error) {
	return scanLink(q.db.QueryRow(ctx, createLink, arg.Code, arg.TargetUrl))
}

const getLink = `-- name: GetLink :one
SELECT ` + linkColumns + `
FROM links
WHERE code = $1`

func (q *Queries) GetLink(ctx context.Context, code string) (LinkRow, error) {
	return scanLink(q.db.QueryRow(ctx, getLink, code))
}

const linkExists = `-- name: LinkExists :one
SELECT EXISTS (SELECT 1 FROM links WHERE code = $1)`

func (q *Queries) LinkExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, linkExists, code).Scan(&exists)
	return exists, err
}

// strpos matches the term literally; ILIKE would treat % and _ as wildcards.
const listLinks = `-- name: ListLinks :many
SELECT ` + linkColumns + `
FROM links
WHERE $1::text = ''
   OR strpos(lower(code), lower($1::text)) > 0
   OR strpos(lower(target_url), lower($1::text)) > 0
ORDER BY created_at DESC, code`

func (q *Queries) ListLinks(ctx context.Context, search string) ([]LinkRow, error) {
	rows, err := q.db.Query(ctx, listLinks, search)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []LinkRow
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteLink = `-- name: DeleteLink :execrows
DELETE FROM links
WHERE code = $1`

func (q *Queries) DeleteLink(ctx context.Context, code string) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteLink, code)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const recordClick = `-- name: RecordClick :execrows
UPDATE links
SET total_clicks = total_clicks + 1,
    last_clicked = now()
WHERE code = $1`

func (q *Queries) RecordClick(ctx context.Context, code string) (int64, error) {
	tag, err := q.db.Exec(ctx, recordClick, code)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
