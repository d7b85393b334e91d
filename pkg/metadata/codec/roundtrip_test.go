package codec

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/plustik/kasten/pkg/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runes mixes ASCII with two, three and four byte UTF-8 sequences.
var runes = []rune("az09 ./-_äöüß€漢字😀\u0000\U0010FFFF")

type generator struct {
	rng *rand.Rand
}

func newGenerator(seed uint64) *generator {
	return &generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// id favours the extremes of the ID space.
func (g *generator) id() uint64 {
	switch g.rng.IntN(4) {
	case 0:
		return 1 << 63
	case 1:
		return ^uint64(0)
	default:
		return g.rng.Uint64()
	}
}

// ids returns nil for an empty list, matching how records decode.
func (g *generator) ids() []uint64 {
	var n int
	switch g.rng.IntN(10) {
	case 0:
		n = 0
	case 1:
		n = metadata.MaxListLen
	default:
		n = g.rng.IntN(20)
	}
	if n == 0 {
		return nil
	}
	ids := make([]uint64, n)
	for i := range ids {
		ids[i] = g.id()
	}
	return ids
}

// text returns a valid UTF-8 string of at most maxBytes bytes.
func (g *generator) text(maxBytes int) string {
	var n int
	switch g.rng.IntN(8) {
	case 0:
		return ""
	case 1:
		n = maxBytes
	default:
		n = g.rng.IntN(min(maxBytes, 64) + 1)
	}

	var b strings.Builder
	for {
		r := string(runes[g.rng.IntN(len(runes))])
		if b.Len()+len(r) > n {
			return b.String()
		}
		b.WriteString(r)
	}
}

const roundTrips = 300

func TestRoundTrip_File(t *testing.T) {
	g := newGenerator(1)
	for i := 0; i < roundTrips; i++ {
		f := &metadata.File{
			ID:        g.id(),
			ParentID:  g.id(),
			OwnerID:   g.id(),
			Name:      g.text(metadata.MaxListLen),
			MediaType: g.text(metadata.MaxListLen),
		}
		data, err := EncodeFile(f)
		require.NoError(t, err)

		got, err := DecodeFile(f.ID, data)
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
}

func TestRoundTrip_Directory(t *testing.T) {
	g := newGenerator(2)
	for i := 0; i < roundTrips; i++ {
		d := &metadata.Directory{
			ID:       g.id(),
			ParentID: g.id(),
			OwnerID:  g.id(),
			Name:     g.text(1 << 17),
			ChildIDs: g.ids(),
		}
		data, err := EncodeDirectory(d)
		require.NoError(t, err)

		got, err := DecodeDirectory(d.ID, data)
		require.NoError(t, err)
		assert.Equal(t, d, got)
	}
}

func TestRoundTrip_Permissions(t *testing.T) {
	g := newGenerator(3)
	for i := 0; i < roundTrips; i++ {
		p := metadata.Permissions{ReadGroupIDs: g.ids(), WriteGroupIDs: g.ids()}
		data, err := EncodePermissions(p)
		require.NoError(t, err)

		got, err := DecodePermissions(data)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestRoundTrip_Group(t *testing.T) {
	g := newGenerator(4)
	for i := 0; i < roundTrips; i++ {
		group := &metadata.Group{
			ID:        g.id(),
			Name:      g.text(1 << 17),
			MemberIDs: g.ids(),
			AdminIDs:  g.ids(),
		}
		data, err := EncodeGroup(group)
		require.NoError(t, err)

		got, err := DecodeGroup(group.ID, data)
		require.NoError(t, err)
		assert.Equal(t, group, got)
	}
}

func TestRoundTrip_EmptyListsDecodeAsNil(t *testing.T) {
	data, err := EncodePermissions(metadata.Permissions{ReadGroupIDs: []uint64{}, WriteGroupIDs: []uint64{}})
	require.NoError(t, err)

	got, err := DecodePermissions(data)
	require.NoError(t, err)
	assert.Nil(t, got.ReadGroupIDs)
	assert.Nil(t, got.WriteGroupIDs)
}

// FuzzDecodeDirectory checks that any input either fails to decode or
// re-encodes to the same bytes.
func FuzzDecodeDirectory(f *testing.F) {
	seed, _ := EncodeDirectory(&metadata.Directory{ParentID: 1, OwnerID: 2, Name: "docs", ChildIDs: []uint64{3, 1 << 63}})
	f.Add(seed)
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, data []byte) {
		d, err := DecodeDirectory(7, data)
		if err != nil {
			return
		}
		again, err := EncodeDirectory(d)
		require.NoError(t, err)
		assert.Equal(t, data, again)
	})
}

// FuzzDecodeFile is FuzzDecodeDirectory for file records.
func FuzzDecodeFile(f *testing.F) {
	seed, _ := EncodeFile(&metadata.File{ParentID: 1, OwnerID: 2, Name: "a.txt", MediaType: "text/plain"})
	f.Add(seed)

	f.Fuzz(func(t *testing.T, data []byte) {
		file, err := DecodeFile(7, data)
		if err != nil {
			return
		}
		again, err := EncodeFile(file)
		require.NoError(t, err)
		assert.Equal(t, data, again)
	})
}
