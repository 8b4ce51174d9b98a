// Package report collects check outcomes and renders them as a table.
package report

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// Status is the outcome of a single check.
type Status string

const (
	// Pass means the check succeeded.
	Pass Status = "PASS"
	// Warn means the check found a problem that does not block the platform.
	Warn Status = "WARN"
	// Fail means the check failed.
	Fail Status = "FAIL"
	// Skip means the check could not run, e.g. a metric the simulator lacks.
	Skip Status = "SKIP"
)

func (s Status) colored() string {
	switch s {
	case Pass:
		return color.GreenString(string(s))
	case Warn, Skip:
		return color.YellowString(string(s))
	case Fail:
		return color.RedString(string(s))
	}

	return string(s)
}

// Result is one row of a report.
type Result struct {
	Name    string
	Status  Status
	Message string
	// Hint tells the operator what to look at when the check did not pass.
	Hint string
}

// Passed builds a Pass result.
func Passed(name, format string, args ...any) Result {
	return Result{Name: name, Status: Pass, Message: fmt.Sprintf(format, args...)}
}

// Warned builds a Warn result.
func Warned(name, hint, format string, args ...any) Result {
	return Result{Name: name, Status: Warn, Message: fmt.Sprintf(format, args...), Hint: hint}
}

// Failed builds a Fail result.
func Failed(name, hint, format string, args ...any) Result {
	return Result{Name: name, Status: Fail, Message: fmt.Sprintf(format, args...), Hint: hint}
}

// Skipped builds a Skip result.
func Skipped(name, format string, args ...any) Result {
	return Result{Name: name, Status: Skip, Message: fmt.Sprintf(format, args...)}
}

// Report is an ordered, concurrency-safe list of results.
type Report struct {
	mu      sync.Mutex
	results []Result
}

// Add appends results.
func (r *Report) Add(results ...Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.results = append(r.results, results...)
}

// Results returns a copy of the results.
func (r *Report) Results() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Result(nil), r.results...)
}

// Count returns the number of results with status.
func (r *Report) Count(status Status) int {
	count := 0

	for _, result := range r.Results() {
		if result.Status == status {
			count++
		}
	}

	return count
}

// HasFailures reports whether any result failed.
func (r *Report) HasFailures() bool {
	return r.Count(Fail) > 0
}

// Summary renders "N passed, N warnings, N failed, N skipped".
func (r *Report) Summary() string {
	return fmt.Sprintf("%d passed, %d warnings, %d failed, %d skipped",
		r.Count(Pass), r.Count(Warn), r.Count(Fail), r.Count(Skip))
}

// Render writes the results as a table followed by the hints of every
// result that did not pass.
func (r *Report) Render(writer io.Writer) error {
	table := tablewriter.NewTable(writer,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
	)
	table.Header("Check", "Status", "Details")

	results := r.Results()

	for _, result := range results {
		err := table.Append(result.Name, result.Status.colored(), result.Message)
		if err != nil {
			return fmt.Errorf("append %s: %w", result.Name, err)
		}
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	var hints strings.Builder

	for _, result := range results {
		if result.Hint == "" || result.Status == Pass {
			continue
		}

		fmt.Fprintf(&hints, "  %s: %s\n", result.Name, result.Hint)
	}

	if hints.Len() > 0 {
		_, err = fmt.Fprintf(writer, "\nHints:\n%s", hints.String())
		if err != nil {
			return fmt.Errorf("write hints: %w", err)
		}
	}

	return nil
}
