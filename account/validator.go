// Package account validates the account identifiers callers act as.
package account

import (
	"fmt"
	"regexp"

	"github.com/Kampouse/fastkv-server/errors"
)

const (
	minLength = 2
	maxLength = 64
)

// parts of lowercase alphanumerics separated by a single '-', '_' or '.'
var accountPattern = regexp.MustCompile(`^[a-z0-9]+([-_.][a-z0-9]+)*$`)

// Validator checks that a value is an acceptable account id. The
// field name is used to describe the failure to the caller
type Validator interface {
	Validate(field, accountID string) error
}

// NearValidator validates NEAR account ids
type NearValidator struct{}

// Validate implementation of Validator for NearValidator. Failures
// are returned as ErrInvalidAccountID
func (NearValidator) Validate(field, accountID string) error {
	if len(accountID) < minLength || len(accountID) > maxLength {
		return errors.New(errors.ErrInvalidAccountID, fmt.Errorf(
			"%s must be between %d and %d characters", field, minLength, maxLength))
	}

	if !accountPattern.MatchString(accountID) {
		return errors.New(errors.ErrInvalidAccountID, fmt.Errorf(
			"%s must contain lowercase alphanumerics separated by '-', '_' or '.'", field))
	}

	return nil
}
