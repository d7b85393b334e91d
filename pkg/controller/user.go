package controller

import (
	"github.com/plustik/kasten/internal/logger"
	"github.com/plustik/kasten/pkg/metadata"
)

// AddUser creates a user with a "home" root directory.
func (c *Controller) AddUser(name, password string) (*metadata.User, error) {
	if name == "" || password == "" {
		return nil, metadata.NewError(metadata.ErrBadCall, 0, "user name and password are required")
	}

	hash, err := HashPassword(password, c.argon2)
	if err != nil {
		return nil, err
	}

	user, err := c.db.InsertNewUser(&metadata.User{Name: name, PasswordHash: hash})
	if err != nil {
		return nil, err
	}

	logger.Info("created user %q (id %d, home %d)", user.Name, user.ID, user.RootDirID)
	return user, nil
}

// GetUserInfo returns the queried user. Users may only look at themselves.
func (c *Controller) GetUserInfo(actingUserID, queriedUserID uint64) (*metadata.User, error) {
	user, err := c.db.GetUser(queriedUserID)
	if err != nil {
		return nil, err
	}
	if actingUserID != queriedUserID {
		return nil, forbidden(queriedUserID, "users may only view themselves")
	}
	return user, nil
}

// UserUpdate lists the user fields to change. Nil fields are kept.
type UserUpdate struct {
	Name     *string
	Password *string
}

// UpdateUserInfo changes the acting user's name or password.
func (c *Controller) UpdateUserInfo(actingUserID uint64, update UserUpdate) (*metadata.User, error) {
	var hash string
	if update.Password != nil {
		var err error
		if hash, err = HashPassword(*update.Password, c.argon2); err != nil {
			return nil, err
		}
	}

	return c.db.UpdateUser(actingUserID, func(user *metadata.User) error {
		if update.Name != nil {
			user.Name = *update.Name
		}
		if update.Password != nil {
			user.PasswordHash = hash
		}
		return nil
	})
}
