package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrKeyNotSet is returned when a required key has no value
type ErrKeyNotSet struct {
	Key string
}

func (e ErrKeyNotSet) Error() string {
	return fmt.Sprintf("configuration key %s needs to be set", e.Key)
}

// ErrInvalidValue is returned when a key is set to a value outside
// of the accepted ones
type ErrInvalidValue struct {
	Key          string
	InvalidValue string
	Values       []string
}

func (e ErrInvalidValue) Error() string {
	if len(e.Values) == 0 {
		return fmt.Sprintf("configuration key %s set to invalid value %s", e.Key, e.InvalidValue)
	}

	return fmt.Sprintf("configuration key %s set to invalid value %s. "+
		"Accepted values are: %s.", e.Key, e.InvalidValue, strings.Join(e.Values, ", "))
}

type ErrParseFlags struct {
	Cause error
}

func (e ErrParseFlags) Error() string {
	return fmt.Sprintf("failed to parse flags %s", e.Cause.Error())
}

var (
	ErrAlreadyParsed error = errors.New("arguments already parsed")
)
