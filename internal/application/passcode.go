package application

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	ErrInvalidPasscodeHash         = errors.New("invalid passcode hash format")
	ErrIncompatiblePasscodeVersion = errors.New("incompatible passcode hash version")
)

// Passcodes are keypad-entry secrets: digits plus the letters A through D,
// between 4 and 10 characters, with at least one digit and one letter.
const (
	passcodeMinLength = 4
	passcodeMaxLength = 10
)

// ValidatePasscode reports whether the plain passcode satisfies the keypad
// alphabet rules. It returns a human-readable reason when it does not.
func ValidatePasscode(passcode string) (string, bool) {
	if len(passcode) < passcodeMinLength || len(passcode) > passcodeMaxLength {
		return fmt.Sprintf("passcode must be between %d and %d characters", passcodeMinLength, passcodeMaxLength), false
	}

	hasDigit, hasLetter := false, false
	for _, r := range passcode {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r >= 'A' && r <= 'D':
			hasLetter = true
		default:
			return "passcode may only contain digits and the letters A-D", false
		}
	}
	if !hasDigit {
		return "passcode must contain at least one digit", false
	}
	if !hasLetter {
		return "passcode must contain at least one letter A-D", false
	}
	return "", true
}

type Argon2idParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

var DefaultArgon2idParams = Argon2idParams{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

func CreatePasscodeHash(passcode string, params Argon2idParams) (string, error) {
	salt := make([]byte, params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(passcode), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)

	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	// Format is $argon2id$v=19$m=...,t=...,p=...$salt$hash
	format := "$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s"
	return fmt.Sprintf(format, argon2.Version, params.Memory, params.Iterations, params.Parallelism, b64Salt, b64Hash), nil
}

func VerifyPasscode(hashedPasscode, passcode string) error {
	parts := strings.Split(hashedPasscode, "$")
	if len(parts) != 6 {
		return ErrInvalidPasscodeHash
	}

	if parts[1] != "argon2id" {
		return ErrInvalidPasscodeHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return err
	}
	if version != argon2.Version {
		return ErrIncompatiblePasscodeVersion
	}

	var params Argon2idParams
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Iterations, &params.Parallelism); err != nil {
		return err
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return err
	}
	params.SaltLength = uint32(len(salt))

	decodedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return err
	}
	params.KeyLength = uint32(len(decodedHash))

	comparisonHash := argon2.IDKey([]byte(passcode), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)

	if subtle.ConstantTimeCompare(decodedHash, comparisonHash) == 1 {
		return nil
	}

	return ErrInvalidCredentials
}
