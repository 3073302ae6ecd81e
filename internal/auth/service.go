// Package auth implements the credential store operations and the
// login/signup/one-time-code flow driven by the HTTP handlers.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"homeexpense/internal/core"
	"homeexpense/internal/log"
	"homeexpense/internal/storage"
)

var (
	ErrAlreadyRegistered = errors.New("mobile number already registered")
	ErrNotRegistered     = errors.New("mobile number not registered")
	ErrWrongPassword     = errors.New("incorrect password")
)

// IsAuthError reports whether err is one of the credential or code failures
// that send the user back to a form rather than failing the request.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAlreadyRegistered) ||
		errors.Is(err, ErrNotRegistered) ||
		errors.Is(err, ErrWrongPassword)
}

// Service wraps an AccountStore with password hashing.
type Service struct {
	store  storage.AccountStore
	now    func() time.Time
	hash   func(string) (string, error)
	logger *log.Logger
}

func NewService(store storage.AccountStore, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{
		store:  store,
		now:    time.Now,
		hash:   HashPassword,
		logger: logger.WithComponent(log.ComponentAuth),
	}
}

// Register creates an account for the exact mobile string given.
func (s *Service) Register(ctx context.Context, mobile, password, name string) error {
	hash, err := s.hash(password)
	if err != nil {
		return err
	}
	err = s.store.CreateAccount(ctx, core.Account{
		Mobile:       mobile,
		PasswordHash: hash,
		DisplayName:  name,
		CreatedAt:    s.now(),
	})
	if errors.Is(err, storage.ErrAccountExists) {
		return ErrAlreadyRegistered
	}
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}

	s.logger.InfoContext(ctx, "Account registered",
		log.FieldOperation, log.OpRegister, log.FieldAccount, core.AccountKey(mobile))
	return nil
}

// Verify checks a password and returns the account's display name.
func (s *Service) Verify(ctx context.Context, mobile, password string) (string, error) {
	acc, err := s.Lookup(ctx, mobile)
	if err != nil {
		return "", err
	}
	if !CheckPassword(acc.PasswordHash, password) {
		return "", ErrWrongPassword
	}
	return acc.DisplayName, nil
}

func (s *Service) Lookup(ctx context.Context, mobile string) (core.Account, error) {
	acc, err := s.store.GetAccount(ctx, mobile)
	if errors.Is(err, storage.ErrAccountNotFound) {
		return core.Account{}, ErrNotRegistered
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	return acc, nil
}
