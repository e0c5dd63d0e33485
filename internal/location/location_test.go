package location

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/shelfkeeper/internal/foundation/errors"
)

func TestParseRoundTrip(t *testing.T) {
	tests := []Location{
		New("world", 0, 64, 0),
		New("world_nether", -17, 5, 300),
		New("my world", 1, -60, -1),
	}

	for _, loc := range tests {
		t.Run(loc.String(), func(t *testing.T) {
			got, err := Parse(loc.String())
			require.NoError(t, err)
			assert.Equal(t, loc, got)
		})
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "world", "world;1;2", "world;1;2;3;4", ";1;2;3", "world;a;2;3"} {
		t.Run(in, func(t *testing.T) {
			_, err := Parse(in)
			require.Error(t, err)
			assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
		})
	}
}

func TestRegion(t *testing.T) {
	assert.Equal(t, Region{World: "w", X: 0, Z: 0}, New("w", 15, 1, 0).Region())
	assert.Equal(t, Region{World: "w", X: 1, Z: -1}, New("w", 16, 1, -1).Region())
	assert.Equal(t, Region{World: "w", X: -2, Z: 2}, New("w", -17, 1, 32).Region())
}

func TestCompare(t *testing.T) {
	locs := []Location{
		New("b", 0, 0, 0),
		New("a", 2, 0, 0),
		New("a", 1, 5, 0),
		New("a", 1, 4, 9),
	}
	slices.SortFunc(locs, Compare)

	assert.Equal(t, []Location{
		New("a", 1, 4, 9),
		New("a", 1, 5, 0),
		New("a", 2, 0, 0),
		New("b", 0, 0, 0),
	}, locs)
}
