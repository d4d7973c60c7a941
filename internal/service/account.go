package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/dinepos/api/internal/apperr"
	"github.com/dinepos/api/internal/logging"
	"github.com/dinepos/api/internal/model"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 6

var ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", apperr.ErrAuthRequired)

// AccountService handles email/password accounts.
type AccountService struct {
	docs DocStore
	now  func() time.Time
	cost int
}

func NewAccountService(docs DocStore) *AccountService {
	return &AccountService{docs: docs, now: time.Now, cost: bcrypt.DefaultCost}
}

// emailClaim maps a reserved email to its account.
type emailClaim struct {
	UserID string `json:"user_id"`
}

// Signup creates an account. Emails are compared case-insensitively and
// reserved with an atomic insert, so concurrent signups for one address
// yield exactly one account and apperr.ErrConflict for the rest.
func (s *AccountService) Signup(ctx context.Context, email, password string) (model.Account, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return model.Account{}, apperr.Invalid("email", "must be a valid address")
	}
	if len(password) < minPasswordLen {
		return model.Account{}, apperr.Invalid("password", fmt.Sprintf("must be at least %d characters", minPasswordLen))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return model.Account{}, fmt.Errorf("hash password: %w", err)
	}
	acct := model.Account{
		ID:             uuid.NewString(),
		Email:          email,
		HashedPassword: string(hash),
		CreatedAt:      s.now(),
	}
	if err := s.docs.Insert(ctx, emailPath(email), emailClaim{UserID: acct.ID}); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return model.Account{}, fmt.Errorf("email %s: %w", email, apperr.ErrConflict)
		}
		logging.FromContext(ctx).Error("reserve email", "error", err)
		return model.Account{}, fmt.Errorf("create account: %w", err)
	}
	if err := s.docs.Set(ctx, userPath(acct.ID), acct); err != nil {
		logging.FromContext(ctx).Error("create account", "error", err)
		if derr := s.docs.Delete(ctx, emailPath(email)); derr != nil {
			logging.FromContext(ctx).Error("release email", "error", derr)
		}
		return model.Account{}, fmt.Errorf("create account: %w", err)
	}
	return acct, nil
}

// Login checks the password. Unknown emails and wrong passwords both yield
// ErrInvalidCredentials.
func (s *AccountService) Login(ctx context.Context, email, password string) (model.Account, error) {
	doc, err := s.docs.Get(ctx, emailPath(normalizeEmail(email)))
	if apperr.IsNotFound(err) {
		return model.Account{}, ErrInvalidCredentials
	}
	if err != nil {
		return model.Account{}, err
	}
	var claim emailClaim
	if err := doc.Decode(&claim); err != nil {
		return model.Account{}, fmt.Errorf("decode email claim: %w", err)
	}
	acct, err := s.Get(ctx, claim.UserID)
	if apperr.IsNotFound(err) {
		return model.Account{}, ErrInvalidCredentials
	}
	if err != nil {
		return model.Account{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acct.HashedPassword), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return model.Account{}, ErrInvalidCredentials
		}
		return model.Account{}, fmt.Errorf("compare password: %w", err)
	}
	return acct, nil
}

// Get returns apperr.ErrNotFound for a deleted account.
func (s *AccountService) Get(ctx context.Context, id string) (model.Account, error) {
	doc, err := s.docs.Get(ctx, userPath(id))
	if err != nil {
		return model.Account{}, err
	}
	var acct model.Account
	if err := doc.Decode(&acct); err != nil {
		return model.Account{}, fmt.Errorf("decode account: %w", err)
	}
	acct.ID = doc.ID
	return acct, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
