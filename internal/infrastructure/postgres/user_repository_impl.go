package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/go-ddd-billing/internal/domain/entity"
	"github.com/oksasatya/go-ddd-billing/internal/domain/repository"
)

const userColumns = `id, email, name, age, created_at, updated_at`

type UserRepository struct{}

func NewUserRepository() *UserRepository {
	return &UserRepository{}
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Age, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, tx pgx.Tx, in entity.CreateUser) (*entity.User, error) {
	row := tx.QueryRow(ctx, `
		INSERT INTO users (id, email, name, age, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+userColumns,
		in.ID, in.Email, in.Name, in.Age, in.CreatedAt, in.UpdatedAt)
	u, err := scanUser(row)
	if err != nil {
		return nil, translate("insert user", err)
	}
	return u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*entity.User, error) {
	u, err := scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, translate("get user", err)
	}
	return u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, tx pgx.Tx, email string) (*entity.User, error) {
	u, err := scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return nil, translate("get user by email", err)
	}
	return u, nil
}

// Update writes only the columns present in patch.
func (r *UserRepository) Update(ctx context.Context, tx pgx.Tx, id uuid.UUID, patch entity.UserUpdate, now time.Time) (*entity.User, error) {
	sets := make([]string, 0, 4)
	args := make([]any, 0, 5)
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Email != nil {
		add("email", *patch.Email)
	}
	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Age.Set {
		add("age", patch.Age.Value)
	}
	add("updated_at", now)
	args = append(args, id)

	q := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d RETURNING %s`, strings.Join(sets, ", "), len(args), userColumns)
	u, err := scanUser(tx.QueryRow(ctx, q, args...))
	if err != nil {
		return nil, translate("update user", err)
	}
	return u, nil
}

func (r *UserRepository) Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return false, translate("delete user", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *UserRepository) List(ctx context.Context, tx pgx.Tx, limit, offset int) ([]entity.User, error) {
	rows, err := tx.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, translate("list users", err)
	}
	defer rows.Close()

	out := make([]entity.User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, translate("scan user", err)
		}
		out = append(out, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("list users", err)
	}
	return out, nil
}

func (r *UserRepository) Count(ctx context.Context, tx pgx.Tx) (int64, error) {
	var n int64
	if err := tx.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&n); err != nil {
		return 0, translate("count users", err)
	}
	return n, nil
}

var _ repository.UserRepository[pgx.Tx] = (*UserRepository)(nil)
