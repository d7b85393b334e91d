package database

import (
	"time"

	"github.com/plustik/kasten/pkg/kv"
	"github.com/plustik/kasten/pkg/metadata"
	"github.com/plustik/kasten/pkg/metadata/codec"
)

// Sessions are stored twice: the record under its session ID, and an empty
// marker under user_id ++ session_id so that all sessions of one user can be
// enumerated with a prefix scan.

// CreateSession starts a session for userID, stamped with the current time
// truncated to seconds. Fails with ErrNoSuchUser if the user doesn't exist.
func (d *Database) CreateSession(userID uint64) (*metadata.UserSession, error) {
	var session *metadata.UserSession
	err := d.update("CreateSession", func(txn kv.Txn) error {
		exists, err := txn.Has(usersCollection, idKey(userID))
		if err != nil {
			return err
		}
		if !exists {
			return metadata.NewError(metadata.ErrNoSuchUser, userID, "user does not exist")
		}

		id, err := allocateID(d.newID, inAnyCollection(txn, sessionsCollection))
		if err != nil {
			return err
		}

		session = &metadata.UserSession{
			ID:        id,
			UserID:    userID,
			CreatedAt: d.clock.Now().Truncate(time.Second),
		}
		if err := txn.Set(sessionsCollection, idKey(id), codec.EncodeSession(session)); err != nil {
			return err
		}
		return txn.Set(userSessionsCollection, kv.CompoundKey(userID, id), nil)
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// GetSession returns the session with the given ID. ErrNoSuchTarget if absent.
func (d *Database) GetSession(id uint64) (*metadata.UserSession, error) {
	var session *metadata.UserSession
	err := d.view("GetSession", func(txn kv.Txn) error {
		var err error
		session, err = lookupSession(txn, id)
		if err == nil && session == nil {
			return metadata.NewError(metadata.ErrNoSuchTarget, id, "session does not exist")
		}
		return err
	})
	return session, err
}

// RemoveSession deletes a session. Removing a missing session is not an error.
func (d *Database) RemoveSession(id uint64) error {
	return d.update("RemoveSession", func(txn kv.Txn) error {
		session, err := lookupSession(txn, id)
		if err != nil || session == nil {
			return err
		}
		return deleteSession(txn, session.UserID, id)
	})
}

// FilterSessions removes every session of userID for which keep returns
// false and reports how many were removed. keep may be called again for the
// same session if the transaction is retried.
func (d *Database) FilterSessions(userID uint64, keep func(session *metadata.UserSession) bool) (int, error) {
	var removed int
	err := d.update("FilterSessions", func(txn kv.Txn) error {
		removed = 0

		var ids []uint64
		err := txn.Scan(userSessionsCollection, idKey(userID), func(key, _ []byte) error {
			_, sessionID, ok := kv.SplitCompoundKey(key)
			if !ok {
				return metadata.NewError(metadata.ErrEncoding, userID, "session marker key is %d bytes", len(key))
			}
			ids = append(ids, sessionID)
			return nil
		})
		if err != nil {
			return err
		}

		for _, id := range ids {
			session, err := lookupSession(txn, id)
			if err != nil {
				return err
			}
			if session != nil && keep(session) {
				continue
			}
			if err := deleteSession(txn, userID, id); err != nil {
				return err
			}
			if session != nil {
				removed++
			}
		}
		return nil
	})
	return removed, err
}

// ExpireSessions removes every session created before cutoff, across all
// users, and reports how many were removed.
func (d *Database) ExpireSessions(cutoff time.Time) (int, error) {
	var removed int
	err := d.update("ExpireSessions", func(txn kv.Txn) error {
		removed = 0

		var expired []*metadata.UserSession
		err := txn.Scan(sessionsCollection, nil, func(key, value []byte) error {
			id, ok := kv.DecodeUint64Key(key)
			if !ok {
				return metadata.NewError(metadata.ErrEncoding, 0, "session key is %d bytes", len(key))
			}
			session, err := codec.DecodeSession(id, value)
			if err != nil {
				return err
			}
			if session.CreatedAt.Before(cutoff) {
				expired = append(expired, session)
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, session := range expired {
			if err := deleteSession(txn, session.UserID, session.ID); err != nil {
				return err
			}
		}
		removed = len(expired)
		return nil
	})
	return removed, err
}

func lookupSession(txn kv.Txn, id uint64) (*metadata.UserSession, error) {
	data, ok, err := get(txn, sessionsCollection, idKey(id))
	if err != nil || !ok {
		return nil, err
	}
	return codec.DecodeSession(id, data)
}

func deleteSession(txn kv.Txn, userID, id uint64) error {
	if err := txn.Delete(sessionsCollection, idKey(id)); err != nil {
		return err
	}
	return txn.Delete(userSessionsCollection, kv.CompoundKey(userID, id))
}
