package controller

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cheapArgon2 = Argon2Params{Memory: 64, Time: 1, Threads: 1, SaltLen: 8, KeyLen: 16}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("hunter2", cheapArgon2)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=64,t=1,p=1$"), hash)

	ok, err := VerifyPassword(hash, "hunter2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword(hash, "hunter3")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPassword_SaltsDiffer(t *testing.T) {
	a, err := HashPassword("same", cheapArgon2)
	require.NoError(t, err)
	b, err := HashPassword("same", cheapArgon2)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerifyPassword_Malformed(t *testing.T) {
	tests := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"wrong algorithm", "$argon2i$v=19$m=64,t=1,p=1$c2FsdA$a2V5"},
		{"wrong version", "$argon2id$v=16$m=64,t=1,p=1$c2FsdA$a2V5"},
		{"bad params", "$argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5"},
		{"bad salt", "$argon2id$v=19$m=64,t=1,p=1$!!!$a2V5"},
		{"bad key", "$argon2id$v=19$m=64,t=1,p=1$c2FsdA$!!!"},
		{"zero threads", "$argon2id$v=19$m=64,t=1,p=0$c2FsdA$a2V5"},
		{"zero time", "$argon2id$v=19$m=64,t=0,p=1$c2FsdA$a2V5"},
		{"zero memory", "$argon2id$v=19$m=0,t=1,p=1$c2FsdA$a2V5"},
		{"empty key", "$argon2id$v=19$m=64,t=1,p=1$c2FsdA$"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := VerifyPassword(tt.hash, "pw")
			assert.Error(t, err)
		})
	}
}
