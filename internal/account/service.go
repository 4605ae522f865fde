package account

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/redmonkez12/accounts-api/internal/auth"
	"github.com/redmonkez12/accounts-api/internal/logging"
	"github.com/redmonkez12/accounts-api/internal/media"
	"github.com/redmonkez12/accounts-api/internal/user"
)

// SignupInput is a registration request.
type SignupInput struct {
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"min=6"`
	Country     string `json:"country" validate:"required"`
	City        string `json:"city" validate:"required"`
	Grade       string `json:"grade" validate:"required"`
	Institution string `json:"institution" validate:"required"`
}

// AuthResult is what signup and login hand back to the client.
type AuthResult struct {
	User  user.User
	Token string
}

// Upload is an image file sent with an update.
type Upload struct {
	Filename string
	Body     io.Reader
}

// UpdateInput is a self-update request. ID is the target from the URL and
// CallerID the authenticated identity.
type UpdateInput struct {
	ID       string
	CallerID uuid.UUID
	Patch    user.Patch
	Password *string
	Image    *Upload
}

// Service implements the account operations
type Service struct {
	users         user.Store
	hasher        auth.PasswordHasher
	tokens        auth.TokenService
	images        media.Store
	logger        *logging.Logger
	tracer        trace.Tracer
	validate      *validator.Validate
	tokenDuration time.Duration

	// decoyHash is verified against when the email is unknown, so a miss
	// costs the same as a wrong password.
	decoyOnce sync.Once
	decoyHash string
}

func NewService(
	users user.Store,
	hasher auth.PasswordHasher,
	tokens auth.TokenService,
	images media.Store,
	logger *logging.Logger,
	tracer trace.Tracer,
	tokenDuration time.Duration,
) *Service {
	return &Service{
		users:         users,
		hasher:        hasher,
		tokens:        tokens,
		images:        images,
		logger:        logger,
		tracer:        tracer,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		tokenDuration: tokenDuration,
	}
}

// ListUsers returns every user without password hashes
func (s *Service) ListUsers(ctx context.Context) ([]user.User, error) {
	ctx, span := s.tracer.Start(ctx, "account.ListUsers")
	defer span.End()

	users, err := s.users.FindAll(ctx, user.FieldPasswordHash)
	if err != nil {
		s.logger.Error("listing users failed", "error", err)
		return nil, fail(span, newError(KindInternal, MessageFetchUsersFailed, err))
	}

	span.SetAttributes(attribute.Int("users.count", len(users)))
	return users, nil
}

// Signup registers a new user and issues a token for it
func (s *Service) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	ctx, span := s.tracer.Start(ctx, "account.Signup")
	defer span.End()

	in.Email = normalizeEmail(in.Email)
	logger := s.logger.WithFields(map[string]any{"email": in.Email})

	if err := s.validate.Struct(in); err != nil {
		logger.Warn("signup rejected: invalid input", "error", err)
		return nil, fail(span, newError(KindValidation, MessageInvalidInputs, err))
	}
	if err := checkPasswordLength(in.Password); err != nil {
		logger.Warn("signup rejected: password too long")
		return nil, fail(span, err)
	}

	_, err := s.users.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		logger.Warn("signup rejected: email already registered")
		return nil, fail(span, newError(KindConflict, MessageUserExists, user.ErrDuplicateEmail))
	case !errors.Is(err, user.ErrNotFound):
		logger.Error("signup failed: email lookup", "error", err)
		return nil, fail(span, newError(KindInternal, MessageSignupFailed, err))
	}

	passwordHash, err := s.hasher.Hash(in.Password)
	if err != nil {
		logger.Error("signup failed: hashing password", "error", err)
		return nil, fail(span, newError(KindInternal, MessageSignupFailed, err))
	}

	created, err := s.users.Insert(ctx, &user.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: passwordHash,
		Country:      in.Country,
		City:         in.City,
		Grade:        in.Grade,
		Institution:  in.Institution,
		Labs:         []string{},
	})
	if err != nil {
		// lost a race with a concurrent signup for the same email
		if errors.Is(err, user.ErrDuplicateEmail) {
			logger.Warn("signup rejected: email registered concurrently")
			return nil, fail(span, newError(KindConflict, MessageUserExists, err))
		}
		logger.Error("signup failed: inserting user", "error", err)
		return nil, fail(span, newError(KindInternal, MessageSignupFailed, err))
	}

	token, err := s.tokens.CreateToken(created.ID, created.Email, s.tokenDuration)
	if err != nil {
		logger.Error("signup failed: issuing token", "error", err, "user_id", created.ID)
		return nil, fail(span, newError(KindInternal, MessageSignupFailed, err))
	}

	span.SetAttributes(attribute.String("user.id", created.ID.String()))
	logger.Info("user signed up", "user_id", created.ID)

	return &AuthResult{User: user.Public(*created), Token: token}, nil
}

// Login checks credentials and issues a token. Unknown email and wrong
// password produce the same error.
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	ctx, span := s.tracer.Start(ctx, "account.Login")
	defer span.End()

	email = normalizeEmail(email)
	logger := s.logger.WithFields(map[string]any{"email": email})

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			s.hasher.Verify(password, s.decoy())
			logger.Info("login rejected: unknown email")
			return nil, fail(span, newError(KindAuth, MessageInvalidCredentials, err))
		}
		logger.Error("login failed: email lookup", "error", err)
		return nil, fail(span, newError(KindInternal, MessageLoginFailed, err))
	}

	if !s.hasher.Verify(password, existing.PasswordHash) {
		logger.Info("login rejected: wrong password", "user_id", existing.ID)
		return nil, fail(span, newError(KindAuth, MessageInvalidCredentials, nil))
	}

	token, err := s.tokens.CreateToken(existing.ID, existing.Email, s.tokenDuration)
	if err != nil {
		logger.Error("login failed: issuing token", "error", err, "user_id", existing.ID)
		return nil, fail(span, newError(KindInternal, MessageLoginFailed, err))
	}

	span.SetAttributes(attribute.String("user.id", existing.ID.String()))
	logger.Info("user logged in", "user_id", existing.ID)

	return &AuthResult{User: user.Public(*existing), Token: token}, nil
}

// UpdateUser applies a self-update. Callers may only modify their own record.
func (s *Service) UpdateUser(ctx context.Context, in UpdateInput) (*user.User, error) {
	ctx, span := s.tracer.Start(ctx, "account.UpdateUser")
	defer span.End()

	logger := s.logger.WithFields(map[string]any{"user_id": in.ID, "caller_id": in.CallerID})

	if err := Authorize(in.ID, in.CallerID); err != nil {
		logger.Warn("update rejected: caller does not own the record")
		return nil, fail(span, err)
	}

	patch := in.Patch
	if patch.Email != nil {
		normalized := normalizeEmail(*patch.Email)
		patch.Email = &normalized
	}
	if err := s.validatePatch(patch, in.Password); err != nil {
		logger.Warn("update rejected: invalid input", "error", err)
		return nil, fail(span, err)
	}

	current, err := s.users.FindByID(ctx, in.CallerID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			logger.Warn("update rejected: user does not exist")
			return nil, fail(span, newError(KindNotFound, MessageUserNotFound, err))
		}
		logger.Error("update failed: user lookup", "error", err)
		return nil, fail(span, newError(KindInternal, MessageUpdateFailed, err))
	}

	if in.Password != nil {
		passwordHash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			logger.Error("update failed: hashing password", "error", err)
			return nil, fail(span, newError(KindInternal, MessageUpdateFailed, err))
		}
		patch.PasswordHash = &passwordHash
	}

	var uploaded string
	if in.Image != nil {
		ref, err := s.images.Save(ctx, in.Image.Body)
		if err != nil {
			if errors.Is(err, media.ErrUnsupportedType) {
				logger.Warn("update rejected: unsupported image", "filename", in.Image.Filename, "error", err)
				return nil, fail(span, newError(KindValidation, MessageInvalidImage, err))
			}
			logger.Error("update failed: storing image", "error", err)
			return nil, fail(span, newError(KindInternal, MessageUpdateFailed, err))
		}
		uploaded = ref
		patch.Image = &ref
	}

	if patch.IsEmpty() {
		logger.Debug("update has no changes")
		out := user.Public(*current)
		return &out, nil
	}

	updated := patch.Apply(*current)
	if err := s.users.Save(ctx, &updated); err != nil {
		s.discardImage(ctx, logger, uploaded)

		switch {
		case errors.Is(err, user.ErrDuplicateEmail):
			logger.Warn("update rejected: email already in use")
			return nil, fail(span, newError(KindConflict, MessageEmailInUse, err))
		case errors.Is(err, user.ErrNotFound):
			logger.Warn("update rejected: user removed during update")
			return nil, fail(span, newError(KindNotFound, MessageUserNotFound, err))
		default:
			logger.Error("update failed: saving user", "error", err)
			return nil, fail(span, newError(KindInternal, MessageUpdateFailed, err))
		}
	}

	if uploaded != "" && current.Image != "" && current.Image != uploaded {
		s.discardImage(ctx, logger, current.Image)
	}

	logger.Info("user updated")

	out := user.Public(updated)
	return &out, nil
}

// Authorize rejects any attempt to modify a record other than the caller's own.
func Authorize(targetID string, callerID uuid.UUID) *Error {
	if callerID == uuid.Nil || targetID != callerID.String() {
		return newError(KindAuth, MessageNotAllowed, nil)
	}
	return nil
}

func (s *Service) validatePatch(p user.Patch, password *string) *Error {
	for _, v := range []*string{p.Name, p.Email, p.Country, p.City, p.Grade, p.Institution} {
		if v != nil && strings.TrimSpace(*v) == "" {
			return newError(KindValidation, MessageInvalidInputs, nil)
		}
	}

	if p.Email != nil {
		if err := s.validate.Var(*p.Email, "email"); err != nil {
			return newError(KindValidation, MessageInvalidInputs, err)
		}
	}

	if password != nil {
		if err := s.validate.Var(*password, "min=6"); err != nil {
			return newError(KindValidation, MessageInvalidInputs, err)
		}
		if err := checkPasswordLength(*password); err != nil {
			return err
		}
	}

	return nil
}

// checkPasswordLength counts bytes, not runes, since that is what the hashers see.
func checkPasswordLength(password string) *Error {
	if len(password) > auth.MaxPasswordBytes {
		return newError(KindValidation, MessageInvalidInputs, nil)
	}
	return nil
}

func (s *Service) decoy() string {
	s.decoyOnce.Do(func() {
		hash, err := s.hasher.Hash(uuid.NewString())
		if err != nil {
			s.logger.Warn("failed to prepare decoy password hash", "error", err)
			return
		}
		s.decoyHash = hash
	})
	return s.decoyHash
}

// discardImage removes an image that is no longer referenced. Failures are only logged.
func (s *Service) discardImage(ctx context.Context, logger *logging.Logger, ref string) {
	if ref == "" {
		return
	}
	if err := s.images.Delete(ctx, ref); err != nil {
		logger.Warn("failed to remove image", "ref", ref, "error", err)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func fail(span trace.Span, err *Error) *Error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Kind.String())
	return err
}
