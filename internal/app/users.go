package app

import (
	"context"
	"fmt"
	"strings"

	"patlogger/internal/auth"
	"patlogger/internal/domain"
)

// UserUpdate carries optional admin edits to an account. Nil fields are
// left unchanged.
type UserUpdate struct {
	Email           *string
	Password        *string
	InspectionLimit *int
}

// ListUsers returns all accounts (admin use only).
func (a *App) ListUsers() ([]domain.User, error) {
	return a.store.ListUsers()
}

// GetUser fetches one account by ID (admin use only).
func (a *App) GetUser(id string) (domain.User, error) {
	user, ok, err := a.store.GetUserByID(id)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, ErrNotFound
	}
	return user, nil
}

// UpdateUser applies admin edits to an account.
func (a *App) UpdateUser(id string, update UserUpdate) (domain.User, error) {
	user, err := a.GetUser(id)
	if err != nil {
		return domain.User{}, err
	}
	if update.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*update.Email))
		if err := domain.ValidateEmail(email); err != nil {
			return domain.User{}, err
		}
		if email != user.Email {
			existing, ok, err := a.store.GetUserByEmail(email)
			if err != nil {
				return domain.User{}, fmt.Errorf("check email: %w", err)
			}
			if ok && existing.ID != user.ID {
				return domain.User{}, ErrEmailAlreadyExists
			}
			user.Email = email
		}
	}
	if update.Password != nil {
		if err := auth.ValidatePassword(*update.Password); err != nil {
			return domain.User{}, err
		}
		hash, err := auth.HashPassword(*update.Password)
		if err != nil {
			return domain.User{}, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
	}
	if update.InspectionLimit != nil {
		if *update.InspectionLimit < 0 {
			return domain.User{}, fmt.Errorf("inspection limit must not be negative")
		}
		user.InspectionLimit = *update.InspectionLimit
	}
	user.UpdatedAt = a.now().UTC()
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// DeleteUser removes an account, its inspections, and their stored
// images.
func (a *App) DeleteUser(ctx context.Context, id string) error {
	if _, err := a.GetUser(id); err != nil {
		return err
	}
	inspections, err := a.store.ListInspections(id)
	if err != nil {
		return fmt.Errorf("list inspections: %w", err)
	}
	for _, insp := range inspections {
		if insp.HasImage() {
			if err := a.purgeBlob(ctx, insp.ImageBlobID); err != nil {
				return err
			}
		}
	}
	if err := a.store.DeleteUser(id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
