package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseDateParam(t *testing.T) {
	loc := time.FixedZone("CET", 3600)

	parsed, err := ParseDateParam(" 2024-03-10 ", loc)
	require.NoError(t, err)
	require.NotNil(t, parsed)
	require.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, loc), *parsed)

	parsed, err = ParseDateParam("", loc)
	require.NoError(t, err)
	require.Nil(t, parsed)

	_, err = ParseDateParam("10.03.2024", loc)
	require.Error(t, err)
}

