package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fixit/internal/models"
	"fixit/internal/repository"
)

type VendorRepo struct{ db *pgxpool.Pool }

func NewVendorRepo(db *pgxpool.Pool) repository.VendorRepository { return &VendorRepo{db: db} }

func (r *VendorRepo) Create(ctx context.Context, v *models.Vendor) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return r.db.QueryRow(ctx, `
		INSERT INTO vendors (id, name, email, phone, services, active)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at`,
		v.ID, v.Name, v.Email, v.Phone, v.Services, v.Active).Scan(&v.CreatedAt)
}

func (r *VendorRepo) GetByID(ctx context.Context, id string) (*models.Vendor, error) {
	var v models.Vendor
	err := r.db.QueryRow(ctx, `
		SELECT id, name, email, phone, services, active, created_at
		FROM vendors WHERE id=$1`, id).
		Scan(&v.ID, &v.Name, &v.Email, &v.Phone, &v.Services, &v.Active, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
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
	if s := strings.TrimSpace(q); s != "" {
		args = append(args, "%"+s+"%")
		clauses = append(clauses, "(name ILIKE $"+itoa(len(args))+" OR services ILIKE $"+itoa(len(args))+")")
	}
	if activeOnly {
		clauses = append(clauses, "active")
	}
	where := strings.Join(clauses, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM vendors WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, limit, offset)
	rows, err := r.db.Query(ctx, `
		SELECT id, name, email, phone, services, active, created_at
		FROM vendors WHERE `+where+`
		ORDER BY name ASC
		LIMIT $`+itoa(len(args)-1)+` OFFSET $`+itoa(len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []models.Vendor{}
	for rows.Next() {
		var v models.Vendor
		if err := rows.Scan(&v.ID, &v.Name, &v.Email, &v.Phone, &v.Services, &v.Active, &v.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, v)
	}
	return out, total, rows.Err()
}
