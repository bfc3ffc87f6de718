package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"fixit/internal/models"
	"fixit/internal/repository"
)

type VendorRepo struct{ db *sql.DB }

var _ repository.VendorRepository = (*VendorRepo)(nil)

func (r *VendorRepo) Create(ctx context.Context, v *models.Vendor) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	v.CreatedAt = fromMillis(toMillis(time.Now()))
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO vendors (id, name, email, phone, services, active, created_at)
		VALUES (?,?,?,?,?,?,?)`,
		v.ID, v.Name, v.Email, v.Phone, v.Services, boolInt(v.Active), toMillis(v.CreatedAt))
	return err
}

func (r *VendorRepo) GetByID(ctx context.Context, id string) (*models.Vendor, error) {
	v, err := scanVendor(r.db.QueryRowContext(ctx, `
		SELECT id, name, email, phone, services, active, created_at FROM vendors WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return v, err
}

func (r *VendorRepo) List(ctx context.Context, q string, activeOnly bool, limit, offset int) ([]models.Vendor, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	clauses := []string{"1=1"}
	args := []any{}
	if s := strings.ToLower(strings.TrimSpace(q)); s != "" {
		p := "%" + s + "%"
		args = append(args, p, p)
		clauses = append(clauses, "(LOWER(name) LIKE ? OR LOWER(services) LIKE ?)")
	}
	if activeOnly {
		clauses = append(clauses, "active = 1")
	}
	where := strings.Join(clauses, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vendors WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, email, phone, services, active, created_at
		FROM vendors WHERE `+where+` ORDER BY name ASC LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []models.Vendor{}
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *v)
	}
	return out, total, rows.Err()
}

func scanVendor(row rowScanner) (*models.Vendor, error) {
	var (
		v         models.Vendor
		active    int
		createdAt int64
	)
	if err := row.Scan(&v.ID, &v.Name, &v.Email, &v.Phone, &v.Services, &active, &createdAt); err != nil {
		return nil, err
	}
	v.Active = active == 1
	v.CreatedAt = fromMillis(createdAt)
	return &v, nil
}
