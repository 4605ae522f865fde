package account

import (
	"encoding/json"
	"errors"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/redmonkez12/accounts-api/internal/auth"
	"github.com/redmonkez12/accounts-api/internal/httputil"
	"github.com/redmonkez12/accounts-api/internal/logging"
	"github.com/redmonkez12/accounts-api/internal/user"
)

// imageField is the multipart file part carrying a new profile image.
const imageField = "image"

// passwordField travels next to the whitelisted fields but is hashed, never stored.
const passwordField = "password"

// Handler contains HTTP handlers for the user account endpoints
type Handler struct {
	service        *Service
	maxUploadBytes int64
}

func NewHandler(service *Service, maxUploadBytes int64) *Handler {
	return &Handler{
		service:        service,
		maxUploadBytes: maxUploadBytes,
	}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UsersResponse wraps the user list
type UsersResponse struct {
	Users []user.User `json:"users"`
}

// AuthResponse is returned by signup and login
type AuthResponse struct {
	UserData user.User `json:"userData"`
	Token    string    `json:"token"`
}

// ListUsers returns all users
// @Summary      List users
// @Description  Every registered user, without password hashes
// @Tags         users
// @Produce      json
// @Success      200 {object} UsersResponse
// @Failure      500 {object} httputil.ErrorResponse "Fetching users failed"
// @Router       /api/users/ [get]
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	httputil.RespondJSON(w, UsersResponse{Users: users}, http.StatusOK)
}

// Signup handles user registration
// @Summary      Register a new user
// @Description  Create an account and receive a bearer token valid for seven days
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body SignupInput true "Registration data"
// @Success      201 {object} AuthResponse
// @Failure      409 {object} httputil.ErrorResponse "User exists already"
// @Failure      422 {object} httputil.ErrorResponse "Invalid inputs"
// @Failure      500 {object} httputil.ErrorResponse "Signing up failed"
// @Router       /api/users/signup [post]
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req SignupInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid signup request body", "error", err.Error())
		httputil.RespondError(w, MessageInvalidInputs, http.StatusUnprocessableEntity)
		return
	}

	result, err := h.service.Signup(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	httputil.RespondJSON(w, AuthResponse{UserData: result.User, Token: result.Token}, http.StatusCreated)
}

// Login handles user login
// @Summary      User login
// @Description  Authenticate with email and password and receive a bearer token
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} AuthResponse
// @Failure      401 {object} httputil.ErrorResponse "Invalid credentials"
// @Failure      422 {object} httputil.ErrorResponse "Malformed body"
// @Failure      500 {object} httputil.ErrorResponse "Logging in failed"
// @Router       /api/users/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login request body", "error", err.Error())
		httputil.RespondError(w, MessageInvalidInputs, http.StatusUnprocessableEntity)
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}

	httputil.RespondJSON(w, AuthResponse{UserData: result.User, Token: result.Token}, http.StatusOK)
}

// UpdateUser handles a self-update
// @Summary      Update own profile
// @Description  Partial update of name, email, country, city, grade, institution, labs and password. Send multipart/form-data to include an image file.
// @Tags         users
// @Accept       json
// @Accept       mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "User ID"
// @Param        image formData file false "Profile image (png or jpeg)"
// @Success      200 {object} user.User
// @Failure      401 {object} httputil.ErrorResponse "Not allowed"
// @Failure      404 {object} httputil.ErrorResponse "User not found"
// @Failure      409 {object} httputil.ErrorResponse "Email already in use"
// @Failure      422 {object} httputil.ErrorResponse "Invalid inputs"
// @Failure      500 {object} httputil.ErrorResponse "Update failed"
// @Router       /api/users/{id} [patch]
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	callerID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, auth.MessageAuthFailed, http.StatusUnauthorized)
		return
	}
	if email, ok := auth.GetUserEmailFromContext(r.Context()); ok {
		logger = logger.WithFields(map[string]any{"caller_id": callerID, "caller_email": email})
	}

	in := UpdateInput{
		ID:       chi.URLParam(r, "id"),
		CallerID: callerID,
	}

	// ownership is decided before the body is looked at
	if err := Authorize(in.ID, callerID); err != nil {
		respondError(w, r, err)
		return
	}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		mediaType = "application/json"
	}

	switch mediaType {
	case "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
		if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
			logger.Warn("invalid multipart update body", "error", err.Error())
			httputil.RespondError(w, MessageInvalidInputs, http.StatusUnprocessableEntity)
			return
		}
		defer r.MultipartForm.RemoveAll()

		if err := readMultipartUpdate(r.MultipartForm, &in); err != nil {
			respondError(w, r, err)
			return
		}
		if in.Image != nil {
			if closer, ok := in.Image.Body.(multipart.File); ok {
				defer closer.Close()
			}
		}
	case "application/json":
		var body map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			logger.Warn("invalid update request body", "error", err.Error())
			httputil.RespondError(w, MessageInvalidInputs, http.StatusUnprocessableEntity)
			return
		}

		if err := readJSONUpdate(body, &in); err != nil {
			respondError(w, r, err)
			return
		}
	default:
		httputil.RespondError(w, MessageInvalidInputs, http.StatusUnprocessableEntity)
		return
	}

	updated, err := h.service.UpdateUser(r.Context(), in)
	if err != nil {
		respondError(w, r, err)
		return
	}

	httputil.RespondJSON(w, updated, http.StatusOK)
}

func readJSONUpdate(body map[string]json.RawMessage, in *UpdateInput) *Error {
	for key, raw := range body {
		if key == passwordField {
			var password string
			if err := json.Unmarshal(raw, &password); err != nil {
				return newError(KindValidation, MessageInvalidInputs, err)
			}
			in.Password = &password
			continue
		}

		if !user.IsUpdatable(key) {
			return FieldNotUpdatable(key)
		}

		if user.Field(key) == user.FieldLabs {
			var labs []string
			if err := json.Unmarshal(raw, &labs); err != nil {
				return newError(KindValidation, MessageInvalidInputs, err)
			}
			if labs == nil {
				labs = []string{}
			}
			in.Patch.Labs = &labs
			continue
		}

		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			return newError(KindValidation, MessageInvalidInputs, err)
		}
		setPatchField(&in.Patch, user.Field(key), value)
	}

	return nil
}

func readMultipartUpdate(form *multipart.Form, in *UpdateInput) *Error {
	for key, values := range form.Value {
		if key == passwordField {
			password := values[0]
			in.Password = &password
			continue
		}

		if !user.IsUpdatable(key) {
			return FieldNotUpdatable(key)
		}

		if user.Field(key) == user.FieldLabs {
			labs := append([]string{}, values...)
			in.Patch.Labs = &labs
			continue
		}

		setPatchField(&in.Patch, user.Field(key), values[0])
	}

	for key := range form.File {
		if key != imageField {
			return FieldNotUpdatable(key)
		}
	}

	files := form.File[imageField]
	if len(files) == 0 {
		return nil
	}
	if len(files) > 1 {
		return newError(KindValidation, MessageInvalidImage, nil)
	}

	f, err := files[0].Open()
	if err != nil {
		return newError(KindInternal, MessageUpdateFailed, err)
	}
	in.Image = &Upload{Filename: files[0].Filename, Body: f}

	return nil
}

func setPatchField(p *user.Patch, field user.Field, value string) {
	v := value
	switch field {
	case user.FieldName:
		p.Name = &v
	case user.FieldEmail:
		p.Email = &v
	case user.FieldCountry:
		p.Country = &v
	case user.FieldCity:
		p.City = &v
	case user.FieldGrade:
		p.Grade = &v
	case user.FieldInstitution:
		p.Institution = &v
	}
}

// respondError writes err as the {"message"} envelope
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logging.GetLoggerFromContext(r.Context())

	var accountErr *Error
	if !errors.As(err, &accountErr) {
		logger.Error("unexpected error", "error", err.Error())
		httputil.RespondError(w, httputil.MessageUnknownError, http.StatusInternalServerError)
		return
	}

	if accountErr.Kind == KindInternal {
		logger.Error("request failed", "kind", accountErr.Kind.String(), "error", accountErr.Error())
	} else {
		logger.Debug("request rejected", "kind", accountErr.Kind.String(), "message", accountErr.Message)
	}

	httputil.RespondError(w, accountErr.Message, accountErr.Status())
}
