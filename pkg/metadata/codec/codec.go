// Package codec converts engine entities to and from their stored records.
//
// Record Layouts (big-endian integers throughout):
//
//	File:        parent_id(8) | owner_id(8) | len(name)(2) | name | len(media_type)(2) | media_type
//	Directory:   parent_id(8) | owner_id(8) | child_count(2) | child_id(8) x n | name (rest)
//	Permissions: read_count(2) | group_id(8) x n | write_count(2) | group_id(8) x n
//	Group:       member_count(2) | user_id(8) x n | admin_count(2) | user_id(8) x n | name (rest)
//	User:        root_dir_id(8) | len(name)(2) | name | password_hash (rest)
//	Session:     user_id(8) | created_at unix seconds, signed (8)
//	ID list:     id(8) x n (count implied by length)
//
// Entity IDs are not part of the record; they are the record's key. An empty
// list is stored as a zero count and always decodes as nil.
//
// Encoding fails with ErrBadCall when a list or length-prefixed string does
// not fit its 16-bit count, or a string is not valid UTF-8. Decoding fails
// with ErrEncoding when a declared count runs past the end of the record or a
// string is not valid UTF-8.
package codec

import (
	"encoding/binary"
	"time"
	"unicode/utf8"

	"github.com/plustik/kasten/pkg/metadata"
)

// ============================================================================
// Writer
// ============================================================================

type writer struct {
	buf []byte
	err error
}

func newWriter(size int) *writer {
	return &writer{buf: make([]byte, 0, size)}
}

func (w *writer) uint64(v uint64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, v)
}

func (w *writer) count(n int, what string) {
	if w.err != nil {
		return
	}
	if n > metadata.MaxListLen {
		w.err = metadata.NewError(metadata.ErrBadCall, 0, "%s has %d entries, at most %d fit a record", what, n, metadata.MaxListLen)
		return
	}
	w.buf = binary.BigEndian.AppendUint16(w.buf, uint16(n))
}

func (w *writer) ids(ids []uint64, what string) {
	w.count(len(ids), what)
	if w.err != nil {
		return
	}
	for _, id := range ids {
		w.uint64(id)
	}
}

func (w *writer) text(s, what string) {
	if w.err != nil {
		return
	}
	if !utf8.ValidString(s) {
		w.err = metadata.NewError(metadata.ErrBadCall, 0, "%s is not valid UTF-8", what)
		return
	}
	w.buf = append(w.buf, s...)
}

func (w *writer) prefixedText(s, what string) {
	w.count(len(s), what)
	w.text(s, what)
}

func (w *writer) bytes() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.buf, nil
}

// ============================================================================
// Reader
// ============================================================================

type reader struct {
	data   []byte
	off    int
	record string
	err    error
}

func newReader(data []byte, record string) *reader {
	return &reader{data: data, record: record}
}

func (r *reader) fail(format string, args ...any) {
	if r.err == nil {
		r.err = metadata.NewError(metadata.ErrEncoding, 0, r.record+" record: "+format, args...)
	}
}

func (r *reader) take(n int, what string) []byte {
	if r.err != nil {
		return nil
	}
	if n > len(r.data)-r.off {
		r.fail("%s needs %d bytes at offset %d, record has %d", what, n, r.off, len(r.data))
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) uint64(what string) uint64 {
	b := r.take(8, what)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

func (r *reader) count(what string) int {
	b := r.take(2, what)
	if b == nil {
		return 0
	}
	return int(binary.BigEndian.Uint16(b))
}

func (r *reader) ids(what string) []uint64 {
	n := r.count(what + " count")
	b := r.take(8*n, what)
	if n == 0 || b == nil {
		return nil
	}
	ids := make([]uint64, n)
	for i := range ids {
		ids[i] = binary.BigEndian.Uint64(b[8*i:])
	}
	return ids
}

func (r *reader) toText(b []byte, what string) string {
	if r.err != nil {
		return ""
	}
	if !utf8.Valid(b) {
		r.fail("%s is not valid UTF-8", what)
		return ""
	}
	return string(b)
}

func (r *reader) prefixedText(what string) string {
	n := r.count(what + " length")
	return r.toText(r.take(n, what), what)
}

func (r *reader) restText(what string) string {
	return r.toText(r.take(len(r.data)-r.off, what), what)
}

func (r *reader) end() error {
	if r.err == nil && r.off != len(r.data) {
		r.fail("%d trailing bytes", len(r.data)-r.off)
	}
	return r.err
}

// ============================================================================
// Entities
// ============================================================================

// EncodeFile encodes f's tree fields. Permissions are stored separately.
func EncodeFile(f *metadata.File) ([]byte, error) {
	w := newWriter(20 + len(f.Name) + 2 + len(f.MediaType))
	w.uint64(f.ParentID)
	w.uint64(f.OwnerID)
	w.prefixedText(f.Name, "file name")
	w.prefixedText(f.MediaType, "media type")
	return w.bytes()
}

// DecodeFile decodes the file record stored under id.
func DecodeFile(id uint64, data []byte) (*metadata.File, error) {
	r := newReader(data, "file")
	f := &metadata.File{ID: id}
	f.ParentID = r.uint64("parent id")
	f.OwnerID = r.uint64("owner id")
	f.Name = r.prefixedText("name")
	f.MediaType = r.prefixedText("media type")
	if err := r.end(); err != nil {
		return nil, err
	}
	return f, nil
}

// EncodeDirectory encodes d's tree fields. Permissions are stored separately.
func EncodeDirectory(d *metadata.Directory) ([]byte, error) {
	w := newWriter(18 + 8*len(d.ChildIDs) + len(d.Name))
	w.uint64(d.ParentID)
	w.uint64(d.OwnerID)
	w.ids(d.ChildIDs, "child list")
	w.text(d.Name, "directory name")
	return w.bytes()
}

// DecodeDirectory decodes the directory record stored under id.
func DecodeDirectory(id uint64, data []byte) (*metadata.Directory, error) {
	r := newReader(data, "directory")
	d := &metadata.Directory{ID: id}
	d.ParentID = r.uint64("parent id")
	d.OwnerID = r.uint64("owner id")
	d.ChildIDs = r.ids("child ids")
	d.Name = r.restText("name")
	if err := r.end(); err != nil {
		return nil, err
	}
	return d, nil
}

// EncodePermissions encodes a node's permission record.
func EncodePermissions(p metadata.Permissions) ([]byte, error) {
	w := newWriter(4 + 8*(len(p.ReadGroupIDs)+len(p.WriteGroupIDs)))
	w.ids(p.ReadGroupIDs, "read group list")
	w.ids(p.WriteGroupIDs, "write group list")
	return w.bytes()
}

// DecodePermissions decodes a node's permission record.
func DecodePermissions(data []byte) (metadata.Permissions, error) {
	r := newReader(data, "permission")
	p := metadata.Permissions{
		ReadGroupIDs:  r.ids("read group ids"),
		WriteGroupIDs: r.ids("write group ids"),
	}
	if err := r.end(); err != nil {
		return metadata.Permissions{}, err
	}
	return p, nil
}

// EncodeGroup encodes g.
func EncodeGroup(g *metadata.Group) ([]byte, error) {
	w := newWriter(4 + 8*(len(g.MemberIDs)+len(g.AdminIDs)) + len(g.Name))
	w.ids(g.MemberIDs, "member list")
	w.ids(g.AdminIDs, "admin list")
	w.text(g.Name, "group name")
	return w.bytes()
}

// DecodeGroup decodes the group record stored under id.
func DecodeGroup(id uint64, data []byte) (*metadata.Group, error) {
	r := newReader(data, "group")
	g := &metadata.Group{ID: id}
	g.MemberIDs = r.ids("member ids")
	g.AdminIDs = r.ids("admin ids")
	g.Name = r.restText("name")
	if err := r.end(); err != nil {
		return nil, err
	}
	return g, nil
}

// EncodeUser encodes u. GroupIDs is derived data and not stored.
func EncodeUser(u *metadata.User) ([]byte, error) {
	w := newWriter(10 + len(u.Name) + len(u.PasswordHash))
	w.uint64(u.RootDirID)
	w.prefixedText(u.Name, "user name")
	w.text(u.PasswordHash, "password hash")
	return w.bytes()
}

// DecodeUser decodes the user record stored under id.
func DecodeUser(id uint64, data []byte) (*metadata.User, error) {
	r := newReader(data, "user")
	u := &metadata.User{ID: id}
	u.RootDirID = r.uint64("root dir id")
	u.Name = r.prefixedText("name")
	u.PasswordHash = r.restText("password hash")
	if err := r.end(); err != nil {
		return nil, err
	}
	return u, nil
}

// EncodeSession encodes s with second precision.
func EncodeSession(s *metadata.UserSession) []byte {
	w := newWriter(16)
	w.uint64(s.UserID)
	w.uint64(uint64(s.CreatedAt.Unix()))
	return w.buf
}

// DecodeSession decodes the session record stored under id.
func DecodeSession(id uint64, data []byte) (*metadata.UserSession, error) {
	r := newReader(data, "session")
	s := &metadata.UserSession{ID: id}
	s.UserID = r.uint64("user id")
	s.CreatedAt = time.Unix(int64(r.uint64("created at")), 0)
	if err := r.end(); err != nil {
		return nil, err
	}
	return s, nil
}

// EncodeIDList encodes an uncounted list of IDs.
func EncodeIDList(ids []uint64) []byte {
	w := newWriter(8 * len(ids))
	for _, id := range ids {
		w.uint64(id)
	}
	return w.buf
}

// DecodeIDList decodes an uncounted list of IDs.
func DecodeIDList(data []byte) ([]uint64, error) {
	if len(data)%8 != 0 {
		return nil, metadata.NewError(metadata.ErrEncoding, 0, "id list: length %d is not a multiple of 8", len(data))
	}
	if len(data) == 0 {
		return nil, nil
	}
	ids := make([]uint64, len(data)/8)
	for i := range ids {
		ids[i] = binary.BigEndian.Uint64(data[8*i:])
	}
	return ids, nil
}
