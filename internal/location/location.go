// Package location defines the value type that identifies a shelf container
// in a world, and its persisted "world;x;y;z" form.
package location

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"

	ferrors "git.home.luguber.info/inful/shelfkeeper/internal/foundation/errors"
)

const separator = ";"

// Location identifies one shelf block. It is comparable and safe to use as a map key.
type Location struct {
	World string
	X     int
	Y     int
	Z     int
}

// New returns the location of the block at x, y, z in world.
func New(world string, x, y, z int) Location {
	return Location{World: world, X: x, Y: y, Z: z}
}

// Parse reads the "world;x;y;z" form produced by String.
func Parse(s string) (Location, error) {
	parts := strings.Split(strings.TrimSpace(s), separator)
	if len(parts) != 4 || parts[0] == "" {
		return Location{}, ferrors.ValidationError("malformed location record").
			WithContext("record", s).
			Build()
	}

	coords := make([]int, 3)
	for i, p := range parts[1:] {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Location{}, ferrors.WrapError(err, ferrors.CategoryValidation, "malformed location coordinate").
				WithContext("record", s).
				Build()
		}
		coords[i] = n
	}
	return New(parts[0], coords[0], coords[1], coords[2]), nil
}

// String renders the persisted form.
func (l Location) String() string {
	return l.World + separator + strconv.Itoa(l.X) + separator + strconv.Itoa(l.Y) + separator + strconv.Itoa(l.Z)
}

// Describe renders the location for human-facing messages.
func (l Location) Describe() string {
	return fmt.Sprintf("%s (%d, %d, %d)", l.World, l.X, l.Y, l.Z)
}

// Region returns the region column holding the block.
func (l Location) Region() Region {
	return Region{World: l.World, X: l.X >> 4, Z: l.Z >> 4}
}

// Compare orders locations by world, then x, y, z.
func Compare(a, b Location) int {
	return cmp.Or(
		cmp.Compare(a.World, b.World),
		cmp.Compare(a.X, b.X),
		cmp.Compare(a.Y, b.Y),
		cmp.Compare(a.Z, b.Z),
	)
}

// Region is a 16x16 column of blocks that the host loads as a unit.
type Region struct {
	World string
	X     int
	Z     int
}

func (r Region) String() string {
	return fmt.Sprintf("%s[%d,%d]", r.World, r.X, r.Z)
}
