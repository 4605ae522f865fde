package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the users table row.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           uuid.UUID `bun:"id,pk,type:uuid"`
	Name         string    `bun:"name,notnull"`
	Email        string    `bun:"email,notnull,unique"`
	PasswordHash string    `bun:"password_hash,notnull"`
	Image        string    `bun:"image,notnull"`
	Country      string    `bun:"country,notnull"`
	City         string    `bun:"city,notnull"`
	Grade        string    `bun:"grade,notnull"`
	Institution  string    `bun:"institution,notnull"`
	Labs         []string  `bun:"labs,array,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
	UpdatedAt    time.Time `bun:"updated_at,notnull"`
}
