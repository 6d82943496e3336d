package entities

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerifiedUser_Validate(t *testing.T) {
	require.Error(t, (&VerifiedUser{AccessToken: "tok"}).Validate())

	// A record without a token is valid; the missing token only matters
	// once a recall has to re-add the user.
	require.NoError(t, (&VerifiedUser{UserID: "user-1"}).Validate())

	require.NoError(t, (&VerifiedUser{UserID: "user-1", AccessToken: "tok"}).Validate())
}
