package user

import (
	"context"
	"errors"
	"log/slog"

	"github.com/asaskevich/govalidator"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"clavis/internal/audit"
	"clavis/internal/auth/password"
	"clavis/internal/platform/metrics"
	id "clavis/pkg/domain"
	dErrors "clavis/pkg/domain-errors"
	"clavis/pkg/platform/sentinel"
	"clavis/pkg/requestcontext"
)

// Store is the subset of the credential store the account service needs.
type Store interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, userID id.UserID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, userID id.UserID) error
	BumpTokenVersion(ctx context.Context, userID id.UserID) (int64, error)
}

// AuditPublisher records account events, fire-and-forget.
type AuditPublisher interface {
	Emit(event audit.Event)
}

const minPasswordLength = 8

// CreateInput is the registration payload after transport decoding.
type CreateInput struct {
	Name     string
	Email    string
	Password string
}

// UpdateInput carries the client-settable fields. Nil means "leave as is".
// Token version and the stored hash are deliberately absent; clients cannot
// set them, and a password change is the only way to touch either.
type UpdateInput struct {
	Name     *string
	Email    *string
	Password *string
}

// Service owns account CRUD and the credential policy around it.
type Service struct {
	store   Store
	auditor AuditPublisher
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

func NewService(store Store, auditor AuditPublisher, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		store:   store,
		auditor: auditor,
		logger:  logger,
		metrics: m,
		tracer:  otel.Tracer("clavis/internal/user"),
	}
}

// Create registers a new account. The email must be unused (case-insensitive);
// a duplicate comes back as CodeDuplicate for the transport to map to 409.
func (s *Service) Create(ctx context.Context, in CreateInput) (Public, error) {
	ctx, span := s.tracer.Start(ctx, "user.create")
	defer span.End()

	if err := validateName(in.Name); err != nil {
		return Public{}, err
	}
	if err := validateEmail(in.Email); err != nil {
		return Public{}, err
	}
	if err := validatePassword(in.Password); err != nil {
		return Public{}, err
	}

	hash, err := password.Hash(in.Password)
	if err != nil {
		return Public{}, err
	}

	now := requestcontext.Now(ctx).UTC()
	u := &User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		LastLogin:    &now,
	}
	if err := s.store.Create(ctx, u); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return Public{}, dErrors.Wrap(err, dErrors.CodeDuplicate, "email already registered")
		}
		return Public{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not create user")
	}

	s.logger.InfoContext(ctx, "user created",
		"user_id", u.ID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.metrics != nil {
		s.metrics.UsersCreated.Inc()
	}
	s.auditor.Emit(audit.Event{
		Action:    audit.ActionUserCreated,
		UserID:    u.ID,
		RequestID: requestcontext.RequestID(ctx),
		Success:   true,
	})
	return u.Public(), nil
}

// Get returns the public projection for the given ID.
func (s *Service) Get(ctx context.Context, userID id.UserID) (Public, error) {
	u, err := s.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Public{}, dErrors.Wrap(err, dErrors.CodeNotFound, "user not found")
		}
		return Public{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not look up user")
	}
	return u.Public(), nil
}

// Update applies the client-settable fields. A password change re-hashes and
// bumps the token version, so every outstanding refresh token dies with the
// old credential.
func (s *Service) Update(ctx context.Context, userID id.UserID, in UpdateInput) (Public, error) {
	ctx, span := s.tracer.Start(ctx, "user.update")
	defer span.End()

	u, err := s.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Public{}, dErrors.Wrap(err, dErrors.CodeNotFound, "user not found")
		}
		return Public{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not look up user")
	}

	if in.Name != nil {
		if err := validateName(*in.Name); err != nil {
			return Public{}, err
		}
		u.Name = *in.Name
	}
	if in.Email != nil {
		if err := validateEmail(*in.Email); err != nil {
			return Public{}, err
		}
		u.Email = *in.Email
	}

	passwordChanged := false
	if in.Password != nil {
		if err := validatePassword(*in.Password); err != nil {
			return Public{}, err
		}
		hash, err := password.Hash(*in.Password)
		if err != nil {
			return Public{}, err
		}
		u.PasswordHash = hash
		u.TokenVersion++
		passwordChanged = true
	}

	if err := s.store.Update(ctx, u); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrConflict):
			return Public{}, dErrors.Wrap(err, dErrors.CodeDuplicate, "email already registered")
		case errors.Is(err, sentinel.ErrNotFound):
			return Public{}, dErrors.Wrap(err, dErrors.CodeNotFound, "user not found")
		default:
			return Public{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not update user")
		}
	}

	s.logger.InfoContext(ctx, "user updated",
		"user_id", userID.String(),
		"password_changed", passwordChanged,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.auditor.Emit(audit.Event{
		Action:    audit.ActionUserUpdated,
		UserID:    userID,
		RequestID: requestcontext.RequestID(ctx),
		Success:   true,
	})
	return u.Public(), nil
}

// Delete removes the account. Outstanding tokens keep verifying until expiry,
// but refresh fails once the record is gone, so sessions die within the
// access-token lifetime.
func (s *Service) Delete(ctx context.Context, userID id.UserID) error {
	ctx, span := s.tracer.Start(ctx, "user.delete")
	defer span.End()

	if err := s.store.Delete(ctx, userID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeNotFound, "user not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not delete user")
	}

	s.logger.InfoContext(ctx, "user deleted",
		"user_id", userID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.auditor.Emit(audit.Event{
		Action:    audit.ActionUserDeleted,
		UserID:    userID,
		RequestID: requestcontext.RequestID(ctx),
		Success:   true,
	})
	return nil
}

func validateName(name string) error {
	if !govalidator.StringLength(name, "1", "255") {
		return dErrors.New(dErrors.CodeInvalidInput, "name must be between 1 and 255 characters")
	}
	return nil
}

func validateEmail(email string) error {
	if !govalidator.StringLength(email, "1", "255") || !govalidator.IsEmail(email) {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid email address")
	}
	return nil
}

func validatePassword(plaintext string) error {
	if len(plaintext) < minPasswordLength {
		return dErrors.New(dErrors.CodeInvalidInput, "password must be at least 8 characters")
	}
	return nil
}
