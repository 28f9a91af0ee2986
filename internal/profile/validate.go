package profile

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxNameLen is the longest accepted profile name.
const MaxNameLen = 64

// NameError explains why a profile name was rejected.
type NameError struct {
	Name   string
	Reason string
}

func (e *NameError) Error() string {
	return fmt.Sprintf("invalid profile name %q: %s", e.Name, e.Reason)
}

// ValidateName checks that name is usable as a directory under
// ~/.gchat/profiles: 1 to 64 of [a-z0-9_-].
func ValidateName(name string) error {
	switch {
	case name == "":
		return &NameError{Name: name, Reason: "empty"}
	case len(name) > MaxNameLen:
		return &NameError{Name: name, Reason: fmt.Sprintf("longer than %d characters", MaxNameLen)}
	}
	if i := strings.IndexFunc(name, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_' || r == '-')
	}); i >= 0 {
		r, _ := utf8.DecodeRuneInString(name[i:])
		return &NameError{Name: name, Reason: fmt.Sprintf("character %q at %d (use a-z, 0-9, _ or -)", r, i)}
	}
	return nil
}
