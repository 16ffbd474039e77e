package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/iliyamo/room-booking/internal/model"
	"github.com/iliyamo/room-booking/internal/policy"
	"github.com/iliyamo/room-booking/internal/repository"
	"github.com/iliyamo/room-booking/internal/utils"
)

// UserInput describes an account created by the identity tooling.
type UserInput struct {
	Username  string
	FirstName string
	LastName  string
	Password  string
	IsStaff   bool
}

// UserService exposes users read-only to the API and lets the identity
// tooling create them.
type UserService struct {
	store repository.Store
}

func (s *UserService) List(ctx context.Context, p policy.Principal) ([]model.User, error) {
	if _, err := policy.Authorize(p, policy.Users, policy.List); err != nil {
		return nil, err
	}
	return s.store.Users().List(ctx)
}

func (s *UserService) Get(ctx context.Context, p policy.Principal, id uint64) (*model.User, error) {
	if _, err := policy.Authorize(p, policy.Users, policy.Retrieve); err != nil {
		return nil, err
	}
	return s.store.Users().Get(ctx, id)
}

// Create hashes the password with bcrypt at cost and stores a new user. It
// bypasses the access policy; only trusted tooling calls it.
func (s *UserService) Create(ctx context.Context, in UserInput, cost int) (*model.User, error) {
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	switch {
	case in.Username == "":
		return nil, model.Errorf(model.ErrValidation, "username: This field may not be blank.")
	case utf8.RuneCountInString(in.Username) > 150:
		return nil, model.Errorf(model.ErrValidation, "username: Ensure this field has no more than 150 characters.")
	case in.Password == "":
		return nil, model.Errorf(model.ErrValidation, "password: This field may not be blank.")
	}
	hash, err := utils.HashPassword(in.Password, cost)
	if err != nil {
		return nil, err
	}
	u := model.User{
		Username:     in.Username,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		IsStaff:      in.IsStaff,
		PasswordHash: hash,
	}
	err = s.store.InTx(ctx, func(q repository.Queries) error {
		return q.Users().Create(ctx, &u)
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}
