package app

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTokenVerifier(t *testing.T) {
	require.True(t, newTokenVerifier("") == nil)
	require.True(t, newTokenVerifier("   ") == nil)
	require.True(t, newTokenVerifier("secret") != nil)
}
