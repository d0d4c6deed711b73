// Package perr defines the closed error-kind taxonomy shared across the
// VFS and fiber subsystems, plus a structured error type that carries a
// Kind alongside operational context.
package perr

// Kind is a closed enumeration of failure categories. It carries no
// payload of its own; context (operation, path, cause) lives on Error.
type Kind int

const (
	None Kind = iota
	IO
	Invalid
	TimedOut
	Busy
	Again
	Canceled
	NoMemory
	Exist
	NotReady
	Access
	NoEntry
	NotSupported
	Disconnected
	InProgress
	Protocol
	Many
	Range
	Broken
	NameTooLong
	InvalidName
	IsDirectory
	NotDirectory
	NotEmpty
	NoSpace
	Internal
	Other
)

var kindNames = [...]string{
	"none", "io", "invalid", "timed-out", "busy", "again", "canceled",
	"no-memory", "exist", "not-ready", "access", "no-entry",
	"not-supported", "disconnected", "in-progress", "protocol", "many",
	"range", "broken", "name-too-long", "invalid-name", "is-directory",
	"not-directory", "not-empty", "no-space", "internal", "other",
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}
