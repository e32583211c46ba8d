// Package report translates verdicts and evaluation errors into the
// process's externally observable contract: an exit code and an
// operator-visible reasons list.
package report

import (
	"io"

	"github.com/fatih/color"

	"github.com/sevigo/merge-warden/internal/core"
)

// Exit codes. Callers distinguish "policy violated" from "could not
// evaluate policy" by this trichotomy.
const (
	ExitApproved = 0
	ExitRejected = 1
	ExitError    = 2
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	reasonColor  = color.New(color.FgYellow)
)

// Reporter writes evaluation outcomes to an operator-visible channel.
type Reporter struct {
	out io.Writer
}

// New creates a Reporter writing to out.
func New(out io.Writer) *Reporter {
	return &Reporter{out: out}
}

// Verdict prints the outcome and returns the exit code for it. The reasons
// list is always printed when the verdict is not satisfied, so a reviewer
// sees exactly which requirement failed without consulting logs.
func (r *Reporter) Verdict(v core.Verdict) int {
	if v.Satisfied {
		successColor.Fprintln(r.out, "✓ approval policy satisfied")
		return ExitApproved
	}

	errorColor.Fprintln(r.out, "✗ approval policy not satisfied")
	for _, reason := range v.Reasons {
		reasonColor.Fprintf(r.out, "  - %s\n", reason)
	}
	return ExitRejected
}

// Error prints an evaluation failure and returns the error exit code.
func (r *Reporter) Error(err error) int {
	errorColor.Fprintf(r.out, "✗ could not evaluate approval policy: %v\n", err)
	return ExitError
}
