package security

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedPasswords struct {
	pw  string
	err error
}

func (f fixedPasswords) OwnerPassword() (string, error) { return f.pw, f.err }

func TestPrintOnly(t *testing.T) {
	p, err := PrintOnly(fixedPasswords{pw: "owner"})
	require.NoError(t, err)

	assert.Equal(t, "owner", p.OwnerPassword)
	assert.True(t, p.Allows(PermPrint))
	assert.False(t, p.Allows(PermCopy))
	assert.False(t, p.Allows(PermModify))
}

func TestPrintOnlyPropagatesError(t *testing.T) {
	_, err := PrintOnly(fixedPasswords{err: errors.New("entropy")})
	assert.EqualError(t, err, "entropy")
}

func TestRandomPasswordsAreDistinct(t *testing.T) {
	src := NewPasswordSource()
	a, err := src.OwnerPassword()
	require.NoError(t, err)
	b, err := src.OwnerPassword()
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
