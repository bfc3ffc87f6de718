package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fixit/internal/models"
	"fixit/internal/repository"
)

type RequestRepo struct{ db *pgxpool.Pool }

func NewRequestRepo(db *pgxpool.Pool) *RequestRepo { return &RequestRepo{db: db} }

var _ repository.RequestRepository = (*RequestRepo)(nil)

const requestColumns = `
	r.id, r.title, r.description, r.category, r.priority, r.status, r.property_id, r.unit_id,
	r.assigned_to, r.assigned_to_kind, r.assigned_by, r.assigned_at, r.created_by,
	r.public_token_hash, r.public_enabled, r.public_expires_at, r.public_issued_by,
	r.public_issued_at, r.public_revoked_at, r.version, r.created_at, r.updated_at, r.resolved_at`

func scanRequest(row pgx.Row) (*models.Request, error) {
	var (
		r                                  models.Request
		assignedTo, assignedKind, assigner *string
		tokenHash, issuedBy                *string
		enabled                            bool
		expiresAt, issuedAt, revokedAt     *time.Time
	)
	err := row.Scan(
		&r.ID, &r.Title, &r.Description, &r.Category, &r.Priority, &r.Status, &r.PropertyID, &r.UnitID,
		&assignedTo, &assignedKind, &assigner, &r.AssignedAt, &r.CreatedBy,
		&tokenHash, &enabled, &expiresAt, &issuedBy,
		&issuedAt, &revokedAt, &r.Version, &r.CreatedAt, &r.UpdatedAt, &r.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	r.AssignedTo = deref(assignedTo)
	r.AssignedToKind = models.AssigneeKind(deref(assignedKind))
	r.AssignedBy = deref(assigner)
	if tokenHash != nil {
		r.PublicAccess = &models.PublicAccess{
			TokenHash: *tokenHash,
			Enabled:   enabled,
			ExpiresAt: expiresAt,
			IssuedBy:  deref(issuedBy),
			RevokedAt: revokedAt,
		}
		if issuedAt != nil {
			r.PublicAccess.IssuedAt = *issuedAt
		}
	}
	r.Media = []models.Media{}
	r.Comments = []models.Comment{}
	return &r, nil
}

func (r *RequestRepo) Create(ctx context.Context, req *models.Request) error {
	args := append([]any{req.ID, req.Title, req.Description, req.Category, req.Priority, req.Status,
		req.PropertyID, req.UnitID}, mutableArgs(req)...)
	args = append(args, req.CreatedBy, req.Version, req.CreatedAt)
	_, err := r.db.Exec(ctx, `
		INSERT INTO maintenance_requests (
			id, title, description, category, priority, status, property_id, unit_id,
			assigned_to, assigned_to_kind, assigned_by, assigned_at,
			public_token_hash, public_enabled, public_expires_at, public_issued_by, public_issued_at, public_revoked_at,
			updated_at, resolved_at, created_by, version, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)`,
		args...)
	return err
}

func (r *RequestRepo) Get(ctx context.Context, id string) (*models.Request, error) {
	req, err := scanRequest(r.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM maintenance_requests r WHERE r.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if err := r.loadChildren(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

func (r *RequestRepo) GetByTokenHash(ctx context.Context, hash string) (*models.Request, error) {
	req, err := scanRequest(r.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM maintenance_requests r WHERE r.public_token_hash = $1`, hash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if err := r.loadChildren(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

func (r *RequestRepo) loadChildren(ctx context.Context, req *models.Request) error {
	rows, err := r.db.Query(ctx, `
		SELECT id, request_id, author_id, author_name, author_kind, message, created_at
		FROM request_comments
		WHERE request_id = $1
		ORDER BY created_at ASC, id ASC
	`, req.ID)
	if err != nil {
		return err
	}
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.RequestID, &c.AuthorID, &c.AuthorName, &c.AuthorKind, &c.Message, &c.CreatedAt); err != nil {
			rows.Close()
			return err
		}
		req.Comments = append(req.Comments, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.db.Query(ctx, `
		SELECT id, request_id, url, filename, content_type, size, uploaded_by, uploader_kind, created_at
		FROM request_media
		WHERE request_id = $1
		ORDER BY created_at ASC, id ASC
	`, req.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var m models.Media
		if err := rows.Scan(&m.ID, &m.RequestID, &m.URL, &m.Filename, &m.ContentType, &m.Size, &m.UploadedBy, &m.UploaderKind, &m.CreatedAt); err != nil {
			return err
		}
		req.Media = append(req.Media, m)
	}
	return rows.Err()
}

// List returns one page of requests (without comments and media) and the
// total for the same filter.
func (r *RequestRepo) List(ctx context.Context, f repository.RequestFilter) ([]models.Request, int, error) {
	f = f.Normalize()
	whereSQL, args := f.Where(func(n int) string { return "$" + itoa(n) })

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM maintenance_requests r `+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sql := fmt.Sprintf(`
		SELECT %s
		FROM maintenance_requests r
		%s
		ORDER BY r.%s %s
		LIMIT $%d OFFSET $%d
	`, requestColumns, whereSQL, f.Sort, f.Order, len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []models.Request{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *req)
	}
	return out, total, rows.Err()
}

func (r *RequestRepo) Save(ctx context.Context, req *models.Request, expectedVersion int64) (int64, error) {
	args := append([]any{req.Title, req.Description, req.Category, req.Priority, req.Status,
		req.PropertyID, req.UnitID}, mutableArgs(req)...)
	args = append(args, req.ID, expectedVersion)
	var version int64
	err := r.db.QueryRow(ctx, `
		UPDATE maintenance_requests SET
			title=$1, description=$2, category=$3, priority=$4, status=$5, property_id=$6, unit_id=$7,
			assigned_to=$8, assigned_to_kind=$9, assigned_by=$10, assigned_at=$11,
			public_token_hash=$12, public_enabled=$13, public_expires_at=$14, public_issued_by=$15,
			public_issued_at=$16, public_revoked_at=$17, updated_at=$18, resolved_at=$19,
			version = version + 1
		WHERE id=$20 AND version=$21
		RETURNING version`, args...).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, r.missOrConflict(ctx, req.ID)
		}
		return 0, err
	}
	return version, nil
}

func (r *RequestRepo) AppendComment(ctx context.Context, c models.Comment, expectedVersion int64, at time.Time) (int64, error) {
	return r.bumpWith(ctx, c.RequestID, expectedVersion, at, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO request_comments (id, request_id, author_id, author_name, author_kind, message, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			c.ID, c.RequestID, c.AuthorID, c.AuthorName, c.AuthorKind, c.Message, c.CreatedAt)
		return err
	})
}

func (r *RequestRepo) AppendMedia(ctx context.Context, m models.Media, expectedVersion int64, at time.Time) (int64, error) {
	return r.bumpWith(ctx, m.RequestID, expectedVersion, at, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO request_media (id, request_id, url, filename, content_type, size, uploaded_by, uploader_kind, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			m.ID, m.RequestID, m.URL, m.Filename, m.ContentType, m.Size, m.UploadedBy, m.UploaderKind, m.CreatedAt)
		return err
	})
}

func (r *RequestRepo) RemoveMedia(ctx context.Context, requestID, mediaID string, expectedVersion int64, at time.Time) (int64, error) {
	return r.bumpWith(ctx, requestID, expectedVersion, at, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM request_media WHERE id=$1 AND request_id=$2`, mediaID, requestID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return repository.ErrNotFound
		}
		return nil
	})
}

// bumpWith claims expectedVersion and runs fn in the same transaction, so a
// child-row write only lands if the aggregate did not move underneath it.
func (r *RequestRepo) bumpWith(ctx context.Context, requestID string, expectedVersion int64, at time.Time, fn func(pgx.Tx) error) (int64, error) {
	var version int64
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			UPDATE maintenance_requests SET version = version + 1, updated_at = $1
			WHERE id = $2 AND version = $3
			RETURNING version`, at, requestID, expectedVersion).Scan(&version)
		if err != nil {
			return err
		}
		return fn(tx)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, r.missOrConflict(ctx, requestID)
		}
		return 0, err
	}
	return version, nil
}

func (r *RequestRepo) ExpirePublicAccess(ctx context.Context, requestID, tokenHash string, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE maintenance_requests
		SET public_enabled = FALSE, public_revoked_at = $1, updated_at = $1, version = version + 1
		WHERE id = $2 AND public_token_hash = $3 AND public_enabled`, at, requestID, tokenHash)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *RequestRepo) missOrConflict(ctx context.Context, id string) error {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM maintenance_requests WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrConflict
}

// mutableArgs returns, in column order, assignment + public access +
// updated_at + resolved_at.
func mutableArgs(req *models.Request) []any {
	var (
		tokenHash, issuedBy            any
		enabled                        bool
		expiresAt, issuedAt, revokedAt any
	)
	if pa := req.PublicAccess; pa != nil {
		tokenHash = nullIfEmpty(pa.TokenHash)
		enabled = pa.Enabled
		issuedBy = nullIfEmpty(pa.IssuedBy)
		if pa.ExpiresAt != nil {
			expiresAt = *pa.ExpiresAt
		}
		if !pa.IssuedAt.IsZero() {
			issuedAt = pa.IssuedAt
		}
		if pa.RevokedAt != nil {
			revokedAt = *pa.RevokedAt
		}
	}
	var assignedAt, resolvedAt any
	if req.AssignedAt != nil {
		assignedAt = *req.AssignedAt
	}
	if req.ResolvedAt != nil {
		resolvedAt = *req.ResolvedAt
	}
	return []any{
		nullIfEmpty(req.AssignedTo), nullIfEmpty(string(req.AssignedToKind)), nullIfEmpty(req.AssignedBy), assignedAt,
		tokenHash, enabled, expiresAt, issuedBy, issuedAt, revokedAt,
		req.UpdatedAt, resolvedAt,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// small helper to avoid fmt for performance-sensitive path.
func itoa(i int) string { return strconv.Itoa(i) }
