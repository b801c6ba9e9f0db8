package core

import (
	"errors"

	"certporter/internal/winutil"
)

// ErrPermissionDenied is returned when a machine-scoped operation is
// attempted without elevated privileges. It is raised before any I/O.
var ErrPermissionDenied = errors.New("machine-scoped operations require elevated privileges")

// PrivilegeChecker reports whether the process may touch the machine store.
// Injected so the engines are testable with fakes.
type PrivilegeChecker interface {
	Elevated() bool
}

// OSPrivileges checks the real process token.
type OSPrivileges struct{}

// Elevated reports the process's actual elevation state.
func (OSPrivileges) Elevated() bool {
	return winutil.Elevated()
}
