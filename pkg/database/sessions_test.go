package database

import (
	"testing"
	"time"

	"github.com/plustik/kasten/internal/testutil"
	"github.com/plustik/kasten/pkg/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSession(t *testing.T) {
	clock := testutil.NewStubClock(time.Date(2024, 1, 15, 10, 30, 0, 500, time.UTC))
	forEachBackend(t, Options{Clock: clock}, func(t *testing.T, db *Database) {
		alice := newUser(t, db, "alice")

		session, err := db.CreateSession(alice.ID)
		require.NoError(t, err)
		assert.NotZero(t, session.ID)
		assert.Equal(t, alice.ID, session.UserID)
		assert.True(t, session.CreatedAt.Equal(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)))

		got, err := db.GetSession(session.ID)
		require.NoError(t, err)
		assert.Equal(t, session.UserID, got.UserID)
		assert.True(t, session.CreatedAt.Equal(got.CreatedAt))

		_, err = db.CreateSession(404)
		requireCode(t, err, metadata.ErrNoSuchUser)

		_, err = db.GetSession(404)
		requireCode(t, err, metadata.ErrNoSuchTarget)
	})
}

func TestRemoveSession_Idempotent(t *testing.T) {
	forEachBackend(t, Options{}, func(t *testing.T, db *Database) {
		alice := newUser(t, db, "alice")
		session, err := db.CreateSession(alice.ID)
		require.NoError(t, err)

		require.NoError(t, db.RemoveSession(session.ID))
		require.NoError(t, db.RemoveSession(session.ID))
		require.NoError(t, db.RemoveSession(404))

		_, err = db.GetSession(session.ID)
		requireCode(t, err, metadata.ErrNoSuchTarget)

		// The membership marker went with it
		removed, err := db.FilterSessions(alice.ID, func(*metadata.UserSession) bool { return false })
		require.NoError(t, err)
		assert.Zero(t, removed)
	})
}

func TestFilterSessions(t *testing.T) {
	clock := testutil.FixedClock()
	forEachBackend(t, Options{Clock: clock}, func(t *testing.T, db *Database) {
		alice := newUser(t, db, "alice")
		bob := newUser(t, db, "bob")

		old, err := db.CreateSession(alice.ID)
		require.NoError(t, err)
		clock.Advance(25 * time.Hour)
		fresh, err := db.CreateSession(alice.ID)
		require.NoError(t, err)
		bobs, err := db.CreateSession(bob.ID)
		require.NoError(t, err)

		cutoff := clock.Now().Add(-24 * time.Hour)
		removed, err := db.FilterSessions(alice.ID, func(s *metadata.UserSession) bool {
			return !s.CreatedAt.Before(cutoff)
		})
		require.NoError(t, err)
		assert.Equal(t, 1, removed)

		_, err = db.GetSession(old.ID)
		requireCode(t, err, metadata.ErrNoSuchTarget)
		_, err = db.GetSession(fresh.ID)
		require.NoError(t, err)

		// Other users' sessions are not visited
		removed, err = db.FilterSessions(alice.ID, func(s *metadata.UserSession) bool {
			assert.Equal(t, alice.ID, s.UserID)
			return false
		})
		require.NoError(t, err)
		assert.Equal(t, 1, removed)
		_, err = db.GetSession(bobs.ID)
		require.NoError(t, err)
	})
}

func TestExpireSessions(t *testing.T) {
	clock := testutil.FixedClock()
	forEachBackend(t, Options{Clock: clock}, func(t *testing.T, db *Database) {
		alice := newUser(t, db, "alice")
		bob := newUser(t, db, "bob")

		_, err := db.CreateSession(alice.ID)
		require.NoError(t, err)
		_, err = db.CreateSession(bob.ID)
		require.NoError(t, err)
		clock.Advance(2 * time.Hour)
		kept, err := db.CreateSession(bob.ID)
		require.NoError(t, err)

		removed, err := db.ExpireSessions(clock.Now().Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 2, removed)

		_, err = db.GetSession(kept.ID)
		require.NoError(t, err)

		count := 0
		_, err = db.FilterSessions(bob.ID, func(*metadata.UserSession) bool {
			count++
			return true
		})
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}
