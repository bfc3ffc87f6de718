package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"fixit/internal/models"
	"fixit/internal/repository"
)

type RequestRepo struct{ db *sql.DB }

var _ repository.RequestRepository = (*RequestRepo)(nil)

const requestColumns = `
	r.id, r.title, r.description, r.category, r.priority, r.status, r.property_id, r.unit_id,
	r.assigned_to, r.assigned_to_kind, r.assigned_by, r.assigned_at, r.created_by,
	r.public_token_hash, r.public_enabled, r.public_expires_at, r.public_issued_by,
	r.public_issued_at, r.public_revoked_at, r.version, r.created_at, r.updated_at, r.resolved_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*models.Request, error) {
	var (
		r                                          models.Request
		priority, status                           string
		assignedTo, assignedKind, assigner         sql.NullString
		tokenHash, issuedBy                        sql.NullString
		enabled                                    int
		assignedAt, expiresAt, issuedAt, revokedAt sql.NullInt64
		resolvedAt                                 sql.NullInt64
		createdAt, updatedAt                       int64
	)
	err := row.Scan(
		&r.ID, &r.Title, &r.Description, &r.Category, &priority, &status, &r.PropertyID, &r.UnitID,
		&assignedTo, &assignedKind, &assigner, &assignedAt, &r.CreatedBy,
		&tokenHash, &enabled, &expiresAt, &issuedBy,
		&issuedAt, &revokedAt, &r.Version, &createdAt, &updatedAt, &resolvedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Priority = models.Priority(priority)
	r.Status = models.Status(status)
	r.AssignedTo = assignedTo.String
	r.AssignedToKind = models.AssigneeKind(assignedKind.String)
	r.AssignedBy = assigner.String
	r.AssignedAt = timePtr(assignedAt)
	r.CreatedAt = fromMillis(createdAt)
	r.UpdatedAt = fromMillis(updatedAt)
	r.ResolvedAt = timePtr(resolvedAt)
	if tokenHash.Valid {
		r.PublicAccess = &models.PublicAccess{
			TokenHash: tokenHash.String,
			Enabled:   enabled == 1,
			ExpiresAt: timePtr(expiresAt),
			IssuedBy:  issuedBy.String,
			RevokedAt: timePtr(revokedAt),
		}
		if issuedAt.Valid {
			r.PublicAccess.IssuedAt = fromMillis(issuedAt.Int64)
		}
	}
	r.Media = []models.Media{}
	r.Comments = []models.Comment{}
	return &r, nil
}

func (r *RequestRepo) Create(ctx context.Context, req *models.Request) error {
	args := append([]any{req.ID, req.Title, req.Description, req.Category, string(req.Priority), string(req.Status),
		req.PropertyID, req.UnitID}, mutableArgs(req)...)
	args = append(args, req.CreatedBy, req.Version, toMillis(req.CreatedAt))
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO maintenance_requests (
			id, title, description, category, priority, status, property_id, unit_id,
			assigned_to, assigned_to_kind, assigned_by, assigned_at,
			public_token_hash, public_enabled, public_expires_at, public_issued_by, public_issued_at, public_revoked_at,
			updated_at, resolved_at, created_by, version, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`, args...)
	return err
}

func (r *RequestRepo) Get(ctx context.Context, id string) (*models.Request, error) {
	return r.getWhere(ctx, "r.id = ?", id)
}

func (r *RequestRepo) GetByTokenHash(ctx context.Context, hash string) (*models.Request, error) {
	return r.getWhere(ctx, "r.public_token_hash = ?", hash)
}

func (r *RequestRepo) getWhere(ctx context.Context, cond string, arg any) (*models.Request, error) {
	req, err := scanRequest(r.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM maintenance_requests r WHERE `+cond, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, request_id, author_id, author_name, author_kind, message, created_at
		FROM request_comments
		WHERE request_id = ?
		ORDER BY created_at ASC, rowid ASC`, req.ID)
	if err != nil {
		return err
	}
	for rows.Next() {
		var (
			c         models.Comment
			kind      string
			createdAt int64
		)
		if err := rows.Scan(&c.ID, &c.RequestID, &c.AuthorID, &c.AuthorName, &kind, &c.Message, &createdAt); err != nil {
			_ = rows.Close()
			return err
		}
		c.AuthorKind = models.AuthorKind(kind)
		c.CreatedAt = fromMillis(createdAt)
		req.Comments = append(req.Comments, c)
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.db.QueryContext(ctx, `
		SELECT id, request_id, url, filename, content_type, size, uploaded_by, uploader_kind, created_at
		FROM request_media
		WHERE request_id = ?
		ORDER BY created_at ASC, rowid ASC`, req.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			m         models.Media
			kind      string
			createdAt int64
		)
		if err := rows.Scan(&m.ID, &m.RequestID, &m.URL, &m.Filename, &m.ContentType, &m.Size, &m.UploadedBy, &kind, &createdAt); err != nil {
			return err
		}
		m.UploaderKind = models.AuthorKind(kind)
		m.CreatedAt = fromMillis(createdAt)
		req.Media = append(req.Media, m)
	}
	return rows.Err()
}

func (r *RequestRepo) List(ctx context.Context, f repository.RequestFilter) ([]models.Request, int, error) {
	f = f.Normalize()
	whereSQL, args := f.Where(func(int) string { return "?" })

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM maintenance_requests r `+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM maintenance_requests r %s ORDER BY r.%s %s LIMIT ? OFFSET ?`,
		requestColumns, whereSQL, f.Sort, strings.ToUpper(f.Order))
	rows, err := r.db.QueryContext(ctx, query, append(args, f.Limit, f.Offset)...)
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
	args := append([]any{req.Title, req.Description, req.Category, string(req.Priority), string(req.Status),
		req.PropertyID, req.UnitID}, mutableArgs(req)...)
	args = append(args, req.ID, expectedVersion)
	res, err := r.db.ExecContext(ctx, `
		UPDATE maintenance_requests SET
			title=?, description=?, category=?, priority=?, status=?, property_id=?, unit_id=?,
			assigned_to=?, assigned_to_kind=?, assigned_by=?, assigned_at=?,
			public_token_hash=?, public_enabled=?, public_expires_at=?, public_issued_by=?,
			public_issued_at=?, public_revoked_at=?, updated_at=?, resolved_at=?,
			version = version + 1
		WHERE id=? AND version=?`, args...)
	if err != nil {
		return 0, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return 0, err
	} else if n == 0 {
		return 0, r.missOrConflict(ctx, req.ID)
	}
	return expectedVersion + 1, nil
}

func (r *RequestRepo) AppendComment(ctx context.Context, c models.Comment, expectedVersion int64, at time.Time) (int64, error) {
	return r.bumpWith(ctx, c.RequestID, expectedVersion, at, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO request_comments (id, request_id, author_id, author_name, author_kind, message, created_at)
			VALUES (?,?,?,?,?,?,?)`,
			c.ID, c.RequestID, c.AuthorID, c.AuthorName, string(c.AuthorKind), c.Message, toMillis(c.CreatedAt))
		return err
	})
}

func (r *RequestRepo) AppendMedia(ctx context.Context, m models.Media, expectedVersion int64, at time.Time) (int64, error) {
	return r.bumpWith(ctx, m.RequestID, expectedVersion, at, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO request_media (id, request_id, url, filename, content_type, size, uploaded_by, uploader_kind, created_at)
			VALUES (?,?,?,?,?,?,?,?,?)`,
			m.ID, m.RequestID, m.URL, m.Filename, m.ContentType, m.Size, m.UploadedBy, string(m.UploaderKind), toMillis(m.CreatedAt))
		return err
	})
}

func (r *RequestRepo) RemoveMedia(ctx context.Context, requestID, mediaID string, expectedVersion int64, at time.Time) (int64, error) {
	return r.bumpWith(ctx, requestID, expectedVersion, at, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM request_media WHERE id=? AND request_id=?`, mediaID, requestID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return repository.ErrNotFound
		}
		return nil
	})
}

func (r *RequestRepo) bumpWith(ctx context.Context, requestID string, expectedVersion int64, at time.Time, fn func(*sql.Tx) error) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE maintenance_requests SET version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`, toMillis(at), requestID, expectedVersion)
	if err != nil {
		return 0, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_ = tx.Rollback()
		return 0, r.missOrConflict(ctx, requestID)
	}
	if err := fn(tx); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return expectedVersion + 1, nil
}

func (r *RequestRepo) ExpirePublicAccess(ctx context.Context, requestID, tokenHash string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE maintenance_requests
		SET public_enabled = 0, public_revoked_at = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND public_token_hash = ? AND public_enabled = 1`,
		toMillis(at), toMillis(at), requestID, tokenHash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *RequestRepo) missOrConflict(ctx context.Context, id string) error {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM maintenance_requests WHERE id = ?`, id).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return repository.ErrConflict
}

func mutableArgs(req *models.Request) []any {
	var (
		tokenHash, issuedBy            any
		enabled                        int
		expiresAt, issuedAt, revokedAt any
	)
	if pa := req.PublicAccess; pa != nil {
		tokenHash = nullString(pa.TokenHash)
		enabled = boolInt(pa.Enabled)
		issuedBy = nullString(pa.IssuedBy)
		expiresAt = nullMillis(pa.ExpiresAt)
		issuedAt = nullMillis(&pa.IssuedAt)
		revokedAt = nullMillis(pa.RevokedAt)
	}
	return []any{
		nullString(req.AssignedTo), nullString(string(req.AssignedToKind)), nullString(req.AssignedBy), nullMillis(req.AssignedAt),
		tokenHash, enabled, expiresAt, issuedBy, issuedAt, revokedAt,
		toMillis(req.UpdatedAt), nullMillis(req.ResolvedAt),
	}
}
