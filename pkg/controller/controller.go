// Package controller applies authorization on top of the database.
//
// Every operation acts on behalf of a user ID. The controller reads the
// acting user fresh from the database, so group changes take effect
// immediately, and maps refused access to ErrForbiddenAction.
package controller

import (
	"time"

	"github.com/plustik/kasten/internal/ratelimiter"
	"github.com/plustik/kasten/pkg/database"
	"github.com/plustik/kasten/pkg/metadata"
)

// Config configures a Controller.
type Config struct {
	// SessionMaxAge is how long a login stays valid (default: 24h)
	SessionMaxAge time.Duration

	// Argon2 holds the password hashing costs (default: DefaultArgon2Params)
	Argon2 Argon2Params

	// Clock decides session expiry (default: database.SystemClock)
	Clock database.Clock

	// FailedLoginInterval is the time a login name needs to regain one
	// failed attempt. 0 disables login throttling.
	FailedLoginInterval time.Duration

	// FailedLoginBurst is the number of failed attempts allowed in a row
	// (default: 5)
	FailedLoginBurst int
}

// maxThrottledNames bounds the number of login names tracked for throttling.
const maxThrottledNames = 4096

// Controller runs user-facing operations against a Database.
type Controller struct {
	db     *database.Database
	maxAge time.Duration
	argon2 Argon2Params
	clock  database.Clock
	logins *ratelimiter.Limiter
}

// New creates a Controller.
func New(db *database.Database, cfg Config) *Controller {
	c := &Controller{
		db:     db,
		maxAge: cfg.SessionMaxAge,
		argon2: cfg.Argon2,
		clock:  cfg.Clock,
	}
	if c.maxAge <= 0 {
		c.maxAge = 24 * time.Hour
	}
	if c.argon2 == (Argon2Params{}) {
		c.argon2 = DefaultArgon2Params
	}
	if c.clock == nil {
		c.clock = database.SystemClock{}
	}

	burst := cfg.FailedLoginBurst
	if burst <= 0 {
		burst = 5
	}
	// New only fails for a non-positive key count
	c.logins, _ = ratelimiter.New(cfg.FailedLoginInterval, burst, maxThrottledNames, c.clock.Now)
	return c
}

func forbidden(id uint64, format string, args ...any) error {
	return metadata.NewError(metadata.ErrForbiddenAction, id, format, args...)
}
