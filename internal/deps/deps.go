// Package deps reports whether the external programs recbase shells out to
// are installed.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"recbase/internal/config"
)

// Requirement names an external program.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a requirement.
type Status struct {
	Requirement
	Path      string
	Available bool
	Detail    string
}

// Requirements lists the programs the configuration refers to.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{{
		Name:        "header parser",
		Command:     cfg.Parser.Command,
		Description: "prints recording headers as JSON",
	}}
}

// Check resolves each requirement on PATH.
func Check(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		req.Command = strings.TrimSpace(req.Command)
		status := Status{Requirement: req}
		switch path, err := exec.LookPath(req.Command); {
		case req.Command == "":
			status.Detail = "command not configured"
		case err != nil:
			status.Detail = fmt.Sprintf("binary %q not found", req.Command)
		default:
			status.Path = path
			status.Available = true
		}
		results = append(results, status)
	}
	return results
}

// Missing returns required entries that are unavailable.
func Missing(statuses []Status) []Status {
	var out []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			out = append(out, s)
		}
	}
	return out
}
