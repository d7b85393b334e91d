package controller

import (
	"testing"
	"time"

	"github.com/plustik/kasten/pkg/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")

	session, err := f.ctrl.Login("alice", "alice-pw")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, session.UserID)
	assert.Equal(t, f.clock.Now(), session.CreatedAt)

	got, err := f.ctrl.Authenticate(session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
}

func TestLogin_Failures(t *testing.T) {
	f := newFixture(t)
	f.user(t, "alice")

	_, err := f.ctrl.Login("nobody", "pw")
	requireCode(t, err, metadata.ErrNoSuchUser)

	_, err = f.ctrl.Login("alice", "wrong")
	requireCode(t, err, metadata.ErrForbiddenAction)
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	f.user(t, "alice")

	session, err := f.ctrl.Login("alice", "alice-pw")
	require.NoError(t, err)

	require.NoError(t, f.ctrl.Logout(session.ID))
	_, err = f.ctrl.Authenticate(session.ID)
	requireCode(t, err, metadata.ErrNoSuchTarget)

	// Logging out twice is fine
	assert.NoError(t, f.ctrl.Logout(session.ID))
}

func TestAuthenticate_Expired(t *testing.T) {
	f := newFixture(t)
	f.user(t, "alice")

	session, err := f.ctrl.Login("alice", "alice-pw")
	require.NoError(t, err)

	f.clock.Advance(24 * time.Hour)
	_, err = f.ctrl.Authenticate(session.ID)
	require.NoError(t, err, "a session exactly at the maximum age is still valid")

	f.clock.Advance(time.Second)
	_, err = f.ctrl.Authenticate(session.ID)
	requireCode(t, err, metadata.ErrNoSuchTarget)

	_, err = f.db.GetSession(session.ID)
	requireCode(t, err, metadata.ErrNoSuchTarget)
}

func TestLogin_RemovesExpiredSessions(t *testing.T) {
	f := newFixture(t)
	f.user(t, "alice")

	old, err := f.ctrl.Login("alice", "alice-pw")
	require.NoError(t, err)

	f.clock.Advance(12 * time.Hour)
	recent, err := f.ctrl.Login("alice", "alice-pw")
	require.NoError(t, err)

	f.clock.Advance(13 * time.Hour)
	fresh, err := f.ctrl.Login("alice", "alice-pw")
	require.NoError(t, err)

	_, err = f.db.GetSession(old.ID)
	requireCode(t, err, metadata.ErrNoSuchTarget)

	for _, id := range []uint64{recent.ID, fresh.ID} {
		_, err := f.db.GetSession(id)
		assert.NoError(t, err)
	}
}

func TestPruneSessions(t *testing.T) {
	f := newFixture(t)
	f.user(t, "alice")
	f.user(t, "bob")

	_, err := f.ctrl.Login("alice", "alice-pw")
	require.NoError(t, err)
	f.clock.Advance(20 * time.Hour)
	kept, err := f.ctrl.Login("bob", "bob-pw")
	require.NoError(t, err)
	f.clock.Advance(5 * time.Hour)

	removed, err := f.ctrl.PruneSessions()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = f.ctrl.Authenticate(kept.ID)
	assert.NoError(t, err)
}

func TestLogin_Throttled(t *testing.T) {
	f := newFixture(t)
	f.ctrl = New(f.db, Config{
		Argon2:              cheapArgon2,
		Clock:               f.clock,
		FailedLoginInterval: time.Minute,
		FailedLoginBurst:    2,
	})
	f.user(t, "alice")

	for i := 0; i < 2; i++ {
		_, err := f.ctrl.Login("alice", "wrong")
		requireCode(t, err, metadata.ErrForbiddenAction)
	}

	// The right password doesn't help while the name is throttled
	_, err := f.ctrl.Login("alice", "alice-pw")
	requireCode(t, err, metadata.ErrForbiddenAction)
	assert.Contains(t, err.Error(), "too many failed logins")

	f.clock.Advance(time.Minute)
	_, err = f.ctrl.Login("alice", "alice-pw")
	require.NoError(t, err)

	// A successful login resets the count
	for i := 0; i < 2; i++ {
		_, err := f.ctrl.Login("alice", "wrong")
		requireCode(t, err, metadata.ErrForbiddenAction)
		assert.NotContains(t, err.Error(), "too many failed logins")
	}
}

func TestLogin_ThrottlesUnknownNames(t *testing.T) {
	f := newFixture(t)
	f.ctrl = New(f.db, Config{
		Argon2:              cheapArgon2,
		Clock:               f.clock,
		FailedLoginInterval: time.Hour,
		FailedLoginBurst:    1,
	})

	_, err := f.ctrl.Login("mallory", "guess")
	requireCode(t, err, metadata.ErrNoSuchUser)

	_, err = f.ctrl.Login("mallory", "guess")
	requireCode(t, err, metadata.ErrForbiddenAction)
}

func TestLogin_RejectsDegenerateHashes(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")

	for _, hash := range []string{
		"$argon2id$v=19$m=64,t=1,p=0$c2FsdA$a2V5",
		"$argon2id$v=19$m=64,t=1,p=1$c2FsdA$",
	} {
		alice.PasswordHash = hash
		require.NoError(t, f.db.InsertUser(alice))

		session, err := f.ctrl.Login("alice", "anything")
		assert.Error(t, err, hash)
		assert.Nil(t, session)
	}
}
