package account

import "net/http"

// Messages returned to clients. Causes stay in Error.Err.
const (
	MessageFetchUsersFailed   = "Fetching users failed, please try again later."
	MessageInvalidInputs      = "Invalid inputs passed, please check your data."
	MessageUserExists         = "User exists already, please login instead."
	MessageSignupFailed       = "Signing up failed, please try again later."
	MessageInvalidCredentials = "Invalid credentials, could not log you in."
	MessageLoginFailed        = "Logging in failed, please try again later."
	MessageNotAllowed         = "You are not allowed to modify this user."
	MessageUserNotFound       = "Could not find user for the provided id."
	MessageUpdateFailed       = "Something went wrong, could not update user."
	MessageEmailInUse         = "Email is already in use."
	MessageInvalidImage       = "Invalid image, only png and jpeg files are accepted."
)

// Kind classifies an Error and decides its HTTP status.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindAuth
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Status is the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindConflict:
		return http.StatusConflict
	case KindAuth:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is returned by every Service operation that fails.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status is the HTTP status code for the error.
func (e *Error) Status() int {
	return e.Kind.Status()
}

func newError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// FieldNotUpdatable reports a client attempt to set a field outside the update whitelist.
func FieldNotUpdatable(name string) *Error {
	return newError(KindValidation, "Invalid inputs passed, field "+name+" cannot be updated.", nil)
}
