package wire

import "errors"

// Failure kinds. Each fatal kind maps to a distinct process exit code so a
// caller (or a script wrapping waysay) can tell what killed the session.
// Spawn failures are recovered locally and never decide the exit code.
var (
	ErrConnection = &Kind{name: "connection", code: 2}
	ErrProtocol   = &Kind{name: "protocol", code: 3}
	ErrAllocation = &Kind{name: "allocation", code: 4}
	ErrIO         = &Kind{name: "io", code: 5}
	ErrSpawn      = &Kind{name: "spawn", code: 0}
)

var fatalKinds = []*Kind{ErrConnection, ErrProtocol, ErrAllocation, ErrIO}

// Kind classifies a failure. Wrap a Kind with fmt.Errorf("%w: ...") and test
// with errors.Is.
type Kind struct {
	name string
	code int
}

func (k *Kind) Error() string {
	return k.name + " error"
}

// ExitCode returns the process exit code associated with this kind.
func (k *Kind) ExitCode() int {
	return k.code
}

// ExitCode maps err to a process exit code: 0 for nil, the kind's code when
// err wraps a fatal kind, 1 otherwise (usage and other unclassified errors).
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	for _, k := range fatalKinds {
		if errors.Is(err, k) {
			return k.code
		}
	}
	return 1
}

// Fatal reports whether err wraps one of the fatal kinds.
func Fatal(err error) bool {
	for _, k := range fatalKinds {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}
