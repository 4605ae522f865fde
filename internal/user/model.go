package user

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose password hash in JSON
	Image        string    `json:"image"`
	Country      string    `json:"country"`
	City         string    `json:"city"`
	Grade        string    `json:"grade"`
	Institution  string    `json:"institution"`
	Labs         []string  `json:"labs"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Field names a stored user attribute. The values double as column and
// document key names in every store.
type Field string

const (
	FieldID           Field = "id"
	FieldName         Field = "name"
	FieldEmail        Field = "email"
	FieldPasswordHash Field = "password_hash"
	FieldImage        Field = "image"
	FieldCountry      Field = "country"
	FieldCity         Field = "city"
	FieldGrade        Field = "grade"
	FieldInstitution  Field = "institution"
	FieldLabs         Field = "labs"
)

// Without returns a copy of u with the given fields zeroed.
// Labs is always returned as a non-nil slice.
func Without(u User, fields ...Field) User {
	out := u
	out.Labs = append([]string{}, u.Labs...)

	for _, f := range fields {
		switch f {
		case FieldName:
			out.Name = ""
		case FieldEmail:
			out.Email = ""
		case FieldPasswordHash:
			out.PasswordHash = ""
		case FieldImage:
			out.Image = ""
		case FieldCountry:
			out.Country = ""
		case FieldCity:
			out.City = ""
		case FieldGrade:
			out.Grade = ""
		case FieldInstitution:
			out.Institution = ""
		case FieldLabs:
			out.Labs = []string{}
		}
	}

	return out
}

// Public strips every secret from u.
func Public(u User) User {
	return Without(u, FieldPasswordHash)
}
