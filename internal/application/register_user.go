package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/wayfarerhq/impact/internal/domain"
	"github.com/wayfarerhq/impact/internal/infrastructure/logging"
)

// RegisterUserInput contains the data needed to register a user.
type RegisterUserInput struct {
	// ExternalID is the authenticated caller's identity from the JWT
	// (sub claim). this comes from the validated token, NOT the body.
	ExternalID string

	// Username is the display handle (3-50 chars, alphanumeric with
	// underscores).
	Username string
}

// RegisterUserOutput contains the result of registration.
type RegisterUserOutput struct {
	UserID   string
	Username string
}

// RegisterUserUseCase provisions a user together with their empty score
// record. the score engine itself never creates records; this is the
// "implicit creation on user creation" collaborator.
type RegisterUserUseCase struct {
	users   domain.UserRepository
	records domain.ScoreRecordRepository
	uow     UnitOfWork
	logger  *logging.Logger
}

// NewRegisterUserUseCase creates a new RegisterUserUseCase.
func NewRegisterUserUseCase(
	users domain.UserRepository,
	records domain.ScoreRecordRepository,
	uow UnitOfWork,
	logger *logging.Logger,
) *RegisterUserUseCase {
	return &RegisterUserUseCase{
		users:   users,
		records: records,
		uow:     uow,
		logger:  logger.WithComponent("register_user"),
	}
}

// Execute registers a new user and provisions the empty score record in
// the same transaction.
func (uc *RegisterUserUseCase) Execute(ctx context.Context, input RegisterUserInput) (*RegisterUserOutput, error) {
	if input.ExternalID == "" {
		return nil, fmt.Errorf("%w: external id is required", domain.ErrInvalidInput)
	}

	username, err := domain.NewUsername(input.Username)
	if err != nil {
		uc.logger.Warn("registration rejected: invalid username",
			"username", input.Username,
			"reason", err.Error(),
		)
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	existing, err := uc.users.FindByExternalID(ctx, input.ExternalID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	if existing != nil {
		uc.logger.Info("registration rejected: user already exists",
			"external_id", input.ExternalID,
		)
		return nil, domain.ErrAlreadyExists
	}

	user, err := domain.NewUser(input.ExternalID, username)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	err = RunInTransaction(ctx, uc.uow, func(txCtx context.Context) error {
		if err := uc.users.Save(txCtx, user); err != nil {
			return fmt.Errorf("saving user: %w", err)
		}
		if err := uc.records.Create(txCtx, domain.NewScoreRecord(user.ID())); err != nil {
			return fmt.Errorf("provisioning score record: %w", err)
		}
		return nil
	})
	if err != nil {
		uc.logger.Error("registration failed",
			"external_id", input.ExternalID,
			"error", err.Error(),
		)
		return nil, err
	}

	uc.logger.Info("user registered",
		"user_id", user.ID().String(),
		"username", username.String(),
	)

	return &RegisterUserOutput{
		UserID:   user.ID().String(),
		Username: username.String(),
	}, nil
}
