package executor

import (
	"context"
	"fmt"
	"strings"
)

// Params describes one account run handed to the browser runner.
type Params struct {
	TaskCode    string
	AccountCode string
	Email       string
	Password    string
	Headless    bool
}

// Result reports the outcome of one account run.
type Result struct {
	Success    bool
	Balance    *float64
	Screenshot string
	FailedStep string
	Message    string
}

// Executor runs a single account through the browser automation flow.
type Executor interface {
	Run(ctx context.Context, params Params) (Result, error)
}

// stepDescriptions maps runner step identifiers to operator-facing messages.
var stepDescriptions = map[string]string{
	"launch":     "browser session could not be started",
	"login":      "login failed",
	"verify":     "account verification challenge was not passed",
	"navigate":   "account page navigation failed",
	"balance":    "balance could not be read",
	"screenshot": "screenshot capture failed",
}

// FailureMessage renders a human-readable failure message from a runner step
// identifier and an optional detail string.
func FailureMessage(step, detail string) string {
	step = strings.TrimSpace(strings.ToLower(step))
	detail = strings.TrimSpace(detail)

	description, ok := stepDescriptions[step]
	if !ok {
		if detail != "" {
			return detail
		}
		if step != "" {
			return fmt.Sprintf("failed at step %q", step)
		}
		return "run failed"
	}
	if detail == "" {
		return description
	}
	return fmt.Sprintf("%s: %s", description, detail)
}
