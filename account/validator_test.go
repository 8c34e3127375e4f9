package account

import (
	"strings"
	"testing"

	"github.com/Kampouse/fastkv-server/errors"
	"github.com/stretchr/testify/assert"
)

func TestValidateValid(t *testing.T) {
	for _, id := range []string{
		"alice.near",
		"kampouse.near",
		"app.alice.near",
		"a1",
		"bob_smith-2.testnet",
		"0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef",
	} {
		assert.Nil(t, NearValidator{}.Validate("account_id", id), id)
	}
}

func TestValidateInvalid(t *testing.T) {
	for _, id := range []string{
		"",
		"a",
		strings.Repeat("a", 65),
		"Alice.near",
		"alice..near",
		".alice",
		"alice.",
		"alice-_near",
		"alice near",
		"alice/near",
	} {
		err := NearValidator{}.Validate("account_id", id)
		assert.True(t, errors.Is(err, errors.ErrInvalidAccountID), id)
	}
}

func TestValidateReasonNamesField(t *testing.T) {
	err := NearValidator{}.Validate("sender_id", "X")

	assert.Contains(t, err.(errors.Error).Reason(), "sender_id")
}
