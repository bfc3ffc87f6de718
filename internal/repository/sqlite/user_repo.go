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

type UserRepo struct{ db *sql.DB }

var _ repository.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) Create(ctx context.Context, email, name string, role models.Role, passwordHash string) (*models.User, error) {
	now := fromMillis(toMillis(time.Now()))
	u := models.User{ID: uuid.NewString(), Email: email, Name: name, Role: role, Active: true, CreatedAt: now, UpdatedAt: now}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, role, active, password_h, created_at, updated_at)
		VALUES (?,?,?,?,1,?,?,?)`,
		u.ID, u.Email, u.Name, string(u.Role), passwordHash, toMillis(now), toMillis(now))
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// SetActive toggles a user account; used by seeding and tests.
func (r *UserRepo) SetActive(ctx context.Context, id string, active bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET active=?, updated_at=? WHERE id=?`,
		boolInt(active), toMillis(time.Now()), id)
	return err
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, string, error) {
	u, ph, err := scanUser(r.db.QueryRowContext(ctx, `
		SELECT id, email, name, role, active, password_h, created_at, updated_at
		FROM users WHERE email = ?`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", nil
	}
	return u, ph, err
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, _, err := scanUser(r.db.QueryRowContext(ctx, `
		SELECT id, email, name, role, active, password_h, created_at, updated_at
		FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (r *UserRepo) List(ctx context.Context, q string, roles []models.Role, active *bool, limit, offset int) ([]models.User, int, error) {
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
		clauses = append(clauses, "(LOWER(email) LIKE ? OR LOWER(name) LIKE ?)")
	}
	if len(roles) > 0 {
		marks := make([]string, len(roles))
		for i, role := range roles {
			marks[i] = "?"
			args = append(args, string(role))
		}
		clauses = append(clauses, "role IN ("+strings.Join(marks, ",")+")")
	}
	if active != nil {
		args = append(args, boolInt(*active))
		clauses = append(clauses, "active = ?")
	}
	where := strings.Join(clauses, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, email, name, role, active, password_h, created_at, updated_at
		FROM users WHERE `+where+` ORDER BY name ASC LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []models.User{}
	for rows.Next() {
		u, _, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *u)
	}
	return out, total, rows.Err()
}

func scanUser(row rowScanner) (*models.User, string, error) {
	var (
		u                    models.User
		role, ph             string
		active               int
		createdAt, updatedAt int64
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &role, &active, &ph, &createdAt, &updatedAt); err != nil {
		return nil, "", err
	}
	u.Role = models.Role(role)
	u.Active = active == 1
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return &u, ph, nil
}
