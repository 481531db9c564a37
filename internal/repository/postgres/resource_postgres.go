package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"acadrive/internal/model"
	"acadrive/internal/query"
	"acadrive/internal/repository"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	resourceHashIndex     = "resources_file_hash_key"
)

const resourceColumns = `id, subject_name, subject_code, semester, resource_type, file_name, file_url, file_hash, owner_id, upvotes, downvotes, score, created_at`

// ResourcePostgres is a PostgreSQL implementation of repository.ResourceRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type ResourcePostgres struct {
	db *sql.DB
}

// NewResourcePostgres creates a new ResourcePostgres repository.
func NewResourcePostgres(db *sql.DB) *ResourcePostgres {
	return &ResourcePostgres{db: db}
}

var _ repository.ResourceRepository = (*ResourcePostgres)(nil)

type scanner interface {
	Scan(dest ...any) error
}

func scanResource(s scanner) (*model.Resource, error) {
	var r model.Resource
	var rt string
	if err := s.Scan(
		&r.ID,
		&r.SubjectName,
		&r.SubjectCode,
		&r.Semester,
		&rt,
		&r.FileName,
		&r.FileURL,
		&r.FileHash,
		&r.OwnerID,
		&r.Upvotes,
		&r.Downvotes,
		&r.Score,
		&r.CreatedAt,
	); err != nil {
		return nil, err
	}
	r.ResourceType = model.ResourceType(rt)
	return &r, nil
}

// Create inserts a new resource row and returns the stored record.
// Counters always start at zero regardless of the input.
func (r *ResourcePostgres) Create(ctx context.Context, res *model.Resource) (*model.Resource, error) {
	const q = `
		INSERT INTO resources (id, subject_name, subject_code, semester, resource_type, file_name, file_url, file_hash, owner_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + resourceColumns
	row := r.db.QueryRowContext(ctx, q,
		res.ID,
		res.SubjectName,
		res.SubjectCode,
		res.Semester,
		string(res.ResourceType),
		res.FileName,
		res.FileURL,
		res.FileHash,
		res.OwnerID,
		res.CreatedAt,
	)
	out, err := scanResource(row)
	if err != nil {
		if isUniqueViolation(err, resourceHashIndex) {
			return nil, fmt.Errorf("%w: %s", repository.ErrDuplicateHash, res.FileHash)
		}
		return nil, err
	}
	return out, nil
}

// FindByID fetches a single resource by its ID.
func (r *ResourcePostgres) FindByID(ctx context.Context, id string) (*model.Resource, error) {
	const q = `SELECT ` + resourceColumns + ` FROM resources WHERE id = $1`
	res, err := scanResource(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return res, nil
}

// FindByHash fetches the resource holding the given content fingerprint.
func (r *ResourcePostgres) FindByHash(ctx context.Context, hash string) (*model.Resource, error) {
	const q = `SELECT ` + resourceColumns + ` FROM resources WHERE file_hash = $1`
	res, err := scanResource(r.db.QueryRowContext(ctx, q, hash))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return res, nil
}

// Query returns every resource matching q, ordered by score then recency.
func (r *ResourcePostgres) Query(ctx context.Context, q query.Query) ([]model.Resource, error) {
	where, args := buildWhere(q)
	stmt := `SELECT ` + resourceColumns + ` FROM resources` + where + ` ORDER BY score DESC, created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Resource, 0)
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// buildWhere renders q as a WHERE clause with positional arguments.
func buildWhere(q query.Query) (string, []any) {
	var conds []string
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.Search != "" {
		p := next("%" + escapeLike(q.Search) + "%")
		conds = append(conds, fmt.Sprintf("(subject_name ILIKE %[1]s OR subject_code ILIKE %[1]s OR file_name ILIKE %[1]s)", p))
	}
	if q.ResourceType != "" {
		conds = append(conds, "resource_type = "+next(string(q.ResourceType)))
	}
	if q.Semester != 0 {
		conds = append(conds, "semester = "+next(q.Semester))
	}
	if q.OwnerID != "" {
		conds = append(conds, "owner_id = "+next(q.OwnerID))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes LIKE wildcards in user input match literally (backslash is
// the default LIKE escape character in PostgreSQL).
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Delete removes a resource row owned by ownerID.
func (r *ResourcePostgres) Delete(ctx context.Context, id, ownerID string) error {
	const q = `DELETE FROM resources WHERE id = $1 AND owner_id = $2`
	res, err := r.db.ExecContext(ctx, q, id, ownerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// IncrementVote records voterID's vote and bumps the counters in one transaction.
// The counter update is a single server-side statement, so concurrent voters
// never lose each other's increments.
func (r *ResourcePostgres) IncrementVote(ctx context.Context, id, voterID string, dir model.VoteDirection) (_ *model.Resource, err error) {
	var update string
	switch dir {
	case model.VoteUp:
		update = `UPDATE resources SET upvotes = upvotes + 1, score = score + 1 WHERE id = $1 RETURNING ` + resourceColumns
	case model.VoteDown:
		update = `UPDATE resources SET downvotes = downvotes + 1, score = score - 1 WHERE id = $1 RETURNING ` + resourceColumns
	default:
		return nil, fmt.Errorf("unknown vote direction %q", dir)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := scanResource(tx.QueryRowContext(ctx, update, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	const insertVote = `
		INSERT INTO votes (resource_id, voter_id, direction)
		VALUES ($1, $2, $3)
		ON CONFLICT (resource_id, voter_id) DO NOTHING
	`
	result, err := tx.ExecContext(ctx, insertVote, id, voterID, string(dir))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		err = repository.ErrAlreadyVoted
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return res, nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == "" || pgErr.ConstraintName == constraint
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}
