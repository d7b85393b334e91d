package controller

import (
	"github.com/plustik/kasten/internal/logger"
	"github.com/plustik/kasten/pkg/metadata"
)

// Login verifies name and password and opens a session.
//
// Unknown users fail with ErrNoSuchUser, wrong passwords with
// ErrForbiddenAction. Both count as failed attempts for the name; once a
// name has used up its attempts, Login fails with ErrForbiddenAction until
// the name regains one. Before the new session is created, the user's
// sessions older than the configured maximum age are removed.
func (c *Controller) Login(name, password string) (*metadata.UserSession, error) {
	if !c.logins.Allowed(name) {
		return nil, forbidden(0, "too many failed logins for %q", name)
	}

	userID, err := c.db.GetUserIDByName(name)
	if metadata.IsCode(err, metadata.ErrNoSuchUser) {
		c.logins.Consume(name)
	}
	if err != nil {
		return nil, err
	}
	user, err := c.db.GetUser(userID)
	if err != nil {
		return nil, err
	}

	ok, err := VerifyPassword(user.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		logger.Debug("failed login for user %q", name)
		c.logins.Consume(name)
		return nil, forbidden(userID, "wrong password")
	}
	c.logins.Reset(name)

	cutoff := c.clock.Now().Add(-c.maxAge)
	expired, err := c.db.FilterSessions(userID, func(s *metadata.UserSession) bool {
		return !s.CreatedAt.Before(cutoff)
	})
	if err != nil {
		return nil, err
	}
	if expired > 0 {
		logger.Debug("removed %d expired sessions of user %d", expired, userID)
	}

	return c.db.CreateSession(userID)
}

// Logout ends a session. Ending an unknown session succeeds.
func (c *Controller) Logout(sessionID uint64) error {
	return c.db.RemoveSession(sessionID)
}

// Authenticate returns the session if it exists and has not expired.
// Expired sessions are removed and reported as ErrNoSuchTarget.
func (c *Controller) Authenticate(sessionID uint64) (*metadata.UserSession, error) {
	session, err := c.db.GetSession(sessionID)
	if err != nil {
		return nil, err
	}

	if session.CreatedAt.Before(c.clock.Now().Add(-c.maxAge)) {
		if err := c.db.RemoveSession(sessionID); err != nil {
			logger.Warn("could not remove expired session %d: %v", sessionID, err)
		}
		return nil, metadata.NewError(metadata.ErrNoSuchTarget, sessionID, "session expired")
	}
	return session, nil
}

// PruneSessions removes the sessions of all users that are older than the
// maximum age and reports how many were removed.
func (c *Controller) PruneSessions() (int, error) {
	return c.db.ExpireSessions(c.clock.Now().Add(-c.maxAge))
}
