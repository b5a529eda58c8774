package domain

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"team-mail/errors"
)

var validate = validator.New()

// LoginCommand carries the credential pair used against the remote directory.
type LoginCommand struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// CreateUserCommand is issued by an owner to provision a new worker account.
type CreateUserCommand struct {
	FirstName string `validate:"required"`
	LastName  string `validate:"required"`
	Email     string `validate:"required,email"`
	Password  string `validate:"required,min=3"`
}

func (c LoginCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	return nil
}

func (c CreateUserCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	return nil
}
