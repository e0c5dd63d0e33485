package host

import (
	"strings"

	ferrors "git.home.luguber.info/inful/shelfkeeper/internal/foundation/errors"
)

// Container selects one of an owner's two containers.
type Container string

const (
	Primary   Container = "primary"
	Secondary Container = "secondary"
)

// Containers lists both containers in display order.
var Containers = []Container{Primary, Secondary}

// ParseContainer accepts the canonical names and the INVENTORY / ENDERCHEST aliases.
func ParseContainer(s string) (Container, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "primary", "inventory", "":
		return Primary, nil
	case "secondary", "enderchest", "ender":
		return Secondary, nil
	default:
		return "", ferrors.Rejected(ferrors.ReasonInvalidContainer, "Invalid container: "+s).Build()
	}
}

// Alias returns the upper-case name clients use.
func (c Container) Alias() string {
	if c == Secondary {
		return "ENDERCHEST"
	}
	return "INVENTORY"
}
