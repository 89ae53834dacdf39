package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"recbase/internal/config"
	"recbase/internal/deps"
)

const platformCheckTimeout = 5 * time.Second

// CheckPlatform verifies that the platform base URL answers HTTP. Any status
// below 500 counts as reachable.
func CheckPlatform(ctx context.Context, name, baseURL string) Result {
	label := "Platform " + name
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: label, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, platformCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/", nil)
	if err != nil {
		return Result{Name: label, Detail: fmt.Sprintf("request failed (%v)", err)}
	}
	client := &http.Client{Timeout: platformCheckTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: label, Detail: summarizeNetError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return Result{Name: label, Detail: fmt.Sprintf("server error (%d)", resp.StatusCode)}
	}
	return Result{Name: label, Passed: true, Detail: "Reachable"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps turns the external program checks into results. Optional
// programs always pass and carry their status in the detail.
func CheckSystemDeps(cfg *config.Config) []Result {
	statuses := deps.Check(deps.Requirements(cfg))
	results := make([]Result, 0, len(statuses))
	for _, s := range statuses {
		r := Result{Name: s.Name, Passed: s.Available || s.Optional}
		if s.Available {
			r.Detail = s.Path
		} else {
			r.Detail = s.Detail
		}
		results = append(results, r)
	}
	return results
}

func summarizeNetError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timed out"
	}
	return err.Error()
}
