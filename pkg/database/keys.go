package database

import "github.com/plustik/kasten/pkg/kv"

// Collection Layout
// =================
//
// Every record lives in a named collection of the underlying kv.Store. Keys
// are 8-byte big-endian IDs unless noted otherwise; values are codec records.
//
// Collection      Key                           Value
// ===========================================================================
// files           file id                       codec file record
// dirs            dir id                        codec directory record
// perms           node id (file or dir)         codec permission record
// users           user id                       codec user record
// usernames       user name (UTF-8 bytes)       user id (8)
// user_groups     user id                       group ids (8 x n)
// groups          group id                      codec group record
// groupnames      group name (UTF-8 bytes)      group id (8)
// sessions        session id                    codec session record
// user_sessions   user id ++ session id (16)    empty
//
// Collection names are part of the on-disk format. A future incompatible
// record layout gets new names rather than reinterpreting these.
const (
	filesCollection        kv.Collection = "files"
	dirsCollection         kv.Collection = "dirs"
	permsCollection        kv.Collection = "perms"
	usersCollection        kv.Collection = "users"
	userNamesCollection    kv.Collection = "usernames"
	userGroupsCollection   kv.Collection = "user_groups"
	groupsCollection       kv.Collection = "groups"
	groupNamesCollection   kv.Collection = "groupnames"
	sessionsCollection     kv.Collection = "sessions"
	userSessionsCollection kv.Collection = "user_sessions"
)

// Collections lists every collection the database uses. Stores handed to New
// must be opened with all of them.
func Collections() []kv.Collection {
	return []kv.Collection{
		filesCollection,
		dirsCollection,
		permsCollection,
		usersCollection,
		userNamesCollection,
		userGroupsCollection,
		groupsCollection,
		groupNamesCollection,
		sessionsCollection,
		userSessionsCollection,
	}
}

func idKey(id uint64) []byte {
	return kv.Uint64Key(id)
}

func nameKey(name string) []byte {
	return []byte(name)
}
