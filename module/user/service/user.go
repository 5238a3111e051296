package service

import (
	"context"
	"time"

	"ChatRelay/logger"
	"ChatRelay/module/user/model"
	"ChatRelay/tools/errs"
	"ChatRelay/tools/ids"
	"ChatRelay/tools/security"
)

// Store is the slice of the credential store the account flows need.
type Store interface {
	Create(ctx context.Context, u *model.User) error
	FindByUsername(ctx context.Context, username string) (*model.User, error)
}

type SignupParams struct {
	Email    string
	Username string
	Password string
}

type LoginParams struct {
	Username string
	Password string
}

type LoginResult struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	ID      string `json:"id"`
}

// Signup hashes the credential and creates the account record.
func Signup(ctx context.Context, s Store, in SignupParams) (*model.User, error) {
	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, errs.ErrInternalServer.WithDetail("hash password")
	}
	now := time.Now()
	u := &model.User{
		UserID:       ids.GenerateString(),
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: hash,
		CreateTime:   now,
		UpdateTime:   now,
	}
	if err := s.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login validates the credential pair and issues a signed token.
// Unknown username and wrong password return the same unauthorized
// error; nothing distinguishes the two to the caller.
func Login(ctx context.Context, s Store, opts security.Options, in LoginParams) (*LoginResult, error) {
	u, err := s.FindByUsername(ctx, in.Username)
	if err != nil {
		if errs.ErrRecordNotFound.Is(err) {
			return nil, errs.ErrUnauthorized
		}
		logger.Errorf("login: find user: %v", err)
		return nil, errs.ErrInternalServer
	}
	if !security.ComparePassword(in.Password, u.PasswordHash) {
		return nil, errs.ErrUnauthorized
	}

	token, _, err := security.Generate(opts, u.UserID)
	if err != nil {
		logger.Errorf("login: generate token: %v", err)
		return nil, errs.ErrInternalServer.WithDetail("failed to generate token")
	}
	return &LoginResult{
		Message: "Logged in successfully",
		Token:   token,
		ID:      u.UserID,
	}, nil
}
