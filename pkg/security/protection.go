package security

import (
	"strings"

	"github.com/google/uuid"
)

// Permission flags understood by PDF writers (ISO 32000 user access bits)
type Permission int

const (
	PermPrint    Permission = 4
	PermModify   Permission = 8
	PermCopy     Permission = 16
	PermAnnotate Permission = 32
)

// Protection describes output restrictions applied to a generated document.
// It is a usage hint for viewers, not a confidentiality boundary: the user
// password is empty so anyone can open the file.
type Protection struct {
	Permissions   Permission
	OwnerPassword string
}

// PasswordSource produces owner passwords
type PasswordSource interface {
	OwnerPassword() (string, error)
}

type randomPasswords struct{}

// NewPasswordSource returns a source of random owner passwords
func NewPasswordSource() PasswordSource {
	return randomPasswords{}
}

func (randomPasswords) OwnerPassword() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(id.String(), "-", ""), nil
}

// PrintOnly returns a protection that allows printing and nothing else
func PrintOnly(src PasswordSource) (Protection, error) {
	pw, err := src.OwnerPassword()
	if err != nil {
		return Protection{}, err
	}
	return Protection{Permissions: PermPrint, OwnerPassword: pw}, nil
}

// Allows reports whether p grants perm
func (p Protection) Allows(perm Permission) bool {
	return p.Permissions&perm != 0
}
