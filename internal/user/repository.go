package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/accounts-api/internal/database"
)

// uniqueViolation is the postgres SQLSTATE for a unique index conflict.
const uniqueViolation = "23505"

// Repository handles user data persistence in postgres
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// FindAll lists users oldest first, leaving the excluded columns out of the query
func (r *Repository) FindAll(ctx context.Context, exclude ...Field) ([]User, error) {
	var rows []database.User

	q := r.db.NewSelect().
		Model(&rows).
		OrderExpr("u.created_at ASC")
	if len(exclude) > 0 {
		q = q.ExcludeColumn(columnNames(exclude)...)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]User, 0, len(rows))
	for i := range rows {
		users = append(users, Without(*mapDBUserToModel(&rows[i]), exclude...))
	}

	return users, nil
}

// FindByEmail retrieves a user by email
func (r *Repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("u.email = ?", email).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// FindByID retrieves a user by ID
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("u.id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// Insert creates a new user row
func (r *Repository) Insert(ctx context.Context, u *User) (*User, error) {
	dbUser := mapModelToDBUser(u)
	if dbUser.ID == uuid.Nil {
		dbUser.ID = uuid.New()
	}
	now := time.Now().UTC()
	dbUser.CreatedAt = now
	dbUser.UpdatedAt = now

	_, err := r.db.NewInsert().
		Model(dbUser).
		Returning("*").
		Exec(ctx)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// Save writes every mutable column of an existing user
func (r *Repository) Save(ctx context.Context, u *User) error {
	dbUser := mapModelToDBUser(u)
	dbUser.UpdatedAt = time.Now().UTC()

	result, err := r.db.NewUpdate().
		Model(dbUser).
		Column("name", "email", "password_hash", "image", "country", "city", "grade", "institution", "labs", "updated_at").
		WherePK().
		Exec(ctx)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	u.UpdatedAt = dbUser.UpdatedAt

	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}

func columnNames(fields []Field) []string {
	cols := make([]string, 0, len(fields))
	for _, f := range fields {
		if f == FieldID {
			continue
		}
		cols = append(cols, string(f))
	}
	return cols
}

// mapDBUserToModel converts database model to domain model
func mapDBUserToModel(dbu *database.User) *User {
	labs := dbu.Labs
	if labs == nil {
		labs = []string{}
	}

	return &User{
		ID:           dbu.ID,
		Name:         dbu.Name,
		Email:        dbu.Email,
		PasswordHash: dbu.PasswordHash,
		Image:        dbu.Image,
		Country:      dbu.Country,
		City:         dbu.City,
		Grade:        dbu.Grade,
		Institution:  dbu.Institution,
		Labs:         labs,
		CreatedAt:    dbu.CreatedAt,
		UpdatedAt:    dbu.UpdatedAt,
	}
}

func mapModelToDBUser(u *User) *database.User {
	labs := append([]string{}, u.Labs...)

	return &database.User{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Image:        u.Image,
		Country:      u.Country,
		City:         u.City,
		Grade:        u.Grade,
		Institution:  u.Institution,
		Labs:         labs,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}
