package semester

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOfTime(t *testing.T) {
	cases := []struct {
		date string
		want string
	}{
		{"2024-01-01", "2024-SPRING"},
		{"2024-06-30", "2024-SPRING"},
		{"2024-07-01", "2024-AUTUMN"},
		{"2024-12-31", "2024-AUTUMN"},
		{"2025-03-15", "2025-SPRING"},
	}

	for _, c := range cases {
		d, err := time.Parse("2006-01-02", c.date)
		require.NoError(t, err)
		require.Equal(t, c.want, OfTime(d), "date=%s", c.date)
	}
}

func TestCurrentMatchesOfTime(t *testing.T) {
	require.Equal(t, OfTime(time.Now()), Current())
}
