// Package users registers and authenticates chat accounts.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/npezzotti/go-chatrelay/internal/database"
	"github.com/npezzotti/go-chatrelay/internal/types"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var ErrUserNotFound = errors.New("user not found")

// AuthError reports a duplicate identity or bad credentials. Reason is safe
// to show to clients.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return e.Reason
}

const invalidCredentials = "Invalid username or password"

type Directory struct {
	db   database.ChatRepository
	log  *zap.SugaredLogger
	cost int
}

func NewDirectory(db database.ChatRepository, logger *zap.SugaredLogger) *Directory {
	return &Directory{
		db:   db,
		log:  logger,
		cost: bcrypt.DefaultCost,
	}
}

func (d *Directory) Register(ctx context.Context, username, email, password string) (types.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return types.User{}, &AuthError{Reason: "Username, email and password are required"}
	}

	if err := d.ensureUnused(ctx, d.db.GetAccountByUsername, username, "Username already exists"); err != nil {
		return types.User{}, err
	}
	if err := d.ensureUnused(ctx, d.db.GetAccountByEmail, email, "Email already exists"); err != nil {
		return types.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.cost)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}

	dbUser, err := d.db.CreateAccount(ctx, database.CreateAccountParams{
		Username:     username,
		EmailAddress: email,
		PasswordHash: string(hash),
	})
	if err != nil {
		return types.User{}, fmt.Errorf("create account: %w", err)
	}

	d.log.Infow("registered user", "id", dbUser.Id, "username", dbUser.Username)

	return toUser(dbUser), nil
}

func (d *Directory) ensureUnused(ctx context.Context, lookup func(context.Context, string) (database.User, error), value, reason string) error {
	_, err := lookup(ctx, value)
	switch {
	case err == nil:
		return &AuthError{Reason: reason}
	case errors.Is(err, sql.ErrNoRows):
		return nil
	default:
		return fmt.Errorf("lookup account: %w", err)
	}
}

func (d *Directory) Authenticate(ctx context.Context, username, password string) (types.User, error) {
	dbUser, err := d.db.GetAccountByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, &AuthError{Reason: invalidCredentials}
		}
		return types.User{}, fmt.Errorf("get account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(dbUser.PasswordHash), []byte(password)); err != nil {
		return types.User{}, &AuthError{Reason: invalidCredentials}
	}

	return toUser(dbUser), nil
}

func (d *Directory) Get(ctx context.Context, id int) (types.User, error) {
	dbUser, err := d.db.GetAccountById(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrUserNotFound
		}
		return types.User{}, fmt.Errorf("get account: %w", err)
	}

	return toUser(dbUser), nil
}

// DisplayName returns the username for id.
func (d *Directory) DisplayName(ctx context.Context, id int) (string, error) {
	u, err := d.Get(ctx, id)
	if err != nil {
		return "", err
	}

	return u.Username, nil
}

func toUser(u database.User) types.User {
	return types.User{
		Id:           u.Id,
		Username:     u.Username,
		EmailAddress: u.EmailAddress,
		CreatedAt:    u.CreatedAt,
	}
}
