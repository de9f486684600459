package domain

import "fmt"

// ExecutionContext selects which content-source credentials a component may use.
type ExecutionContext int

const (
	ExecutionBrowser ExecutionContext = iota // read-only, CDN, no token
	ExecutionServer                          // write credential available
)

func (e ExecutionContext) String() string {
	switch e {
	case ExecutionBrowser:
		return "browser"
	case ExecutionServer:
		return "server"
	default:
		return "unknown"
	}
}

// ParseExecutionContext maps a config value onto an ExecutionContext.
func ParseExecutionContext(s string) (ExecutionContext, error) {
	switch s {
	case "browser":
		return ExecutionBrowser, nil
	case "server":
		return ExecutionServer, nil
	default:
		return 0, fmt.Errorf("unknown execution context %q", s)
	}
}
