package user

// updatable lists the attributes a client may change on its own record.
// The password and the profile image travel separately.
var updatable = map[Field]struct{}{
	FieldName:        {},
	FieldEmail:       {},
	FieldCountry:     {},
	FieldCity:        {},
	FieldGrade:       {},
	FieldInstitution: {},
	FieldLabs:        {},
}

// IsUpdatable reports whether a client may set the named field in an update request.
func IsUpdatable(name string) bool {
	_, ok := updatable[Field(name)]
	return ok
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Name         *string
	Email        *string
	Country      *string
	City         *string
	Grade        *string
	Institution  *string
	Labs         *[]string
	Image        *string
	PasswordHash *string
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p == Patch{}
}

// Apply merges p into u and returns the result. u is not modified.
func (p Patch) Apply(u User) User {
	out := u
	out.Labs = append([]string{}, u.Labs...)

	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.Email != nil {
		out.Email = *p.Email
	}
	if p.Country != nil {
		out.Country = *p.Country
	}
	if p.City != nil {
		out.City = *p.City
	}
	if p.Grade != nil {
		out.Grade = *p.Grade
	}
	if p.Institution != nil {
		out.Institution = *p.Institution
	}
	if p.Labs != nil {
		out.Labs = append([]string{}, (*p.Labs)...)
	}
	if p.Image != nil {
		out.Image = *p.Image
	}
	if p.PasswordHash != nil {
		out.PasswordHash = *p.PasswordHash
	}

	return out
}
