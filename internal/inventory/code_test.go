package inventory

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewReservationCodeRange(t *testing.T) {
	for i := 0; i < 500; i++ {
		code, err := NewReservationCode()
		require.NoError(t, err)
		require.Len(t, code, 4)
		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, 1000)
		require.LessOrEqual(t, n, 9999)
	}
}
