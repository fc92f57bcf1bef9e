package form

import (
	"fmt"
	"strings"
)

// ValidationError lists why a draft was not submitted. Nothing was sent to the server.
type ValidationError struct {
	Warnings []string
}

func (e *ValidationError) Error() string {
	return "draft is not valid: " + strings.Join(e.Warnings, " ")
}

// BatchReport describes a submit that sends one request per month. Months are named Jan..Dec.
// Months after the first failure are skipped; earlier successes stay stored on the server.
type BatchReport struct {
	Succeeded []string
	Failed    []string
	Skipped   []string
	Err       error
}

func (r BatchReport) Complete() bool {
	return r.Err == nil && len(r.Failed) == 0 && len(r.Skipped) == 0
}

func (r BatchReport) String() string {
	if r.Complete() {
		return fmt.Sprintf("added %d month(s): %s", len(r.Succeeded), strings.Join(r.Succeeded, ", "))
	}
	return fmt.Sprintf("added %d month(s) [%s], failed [%s], skipped [%s]: %v",
		len(r.Succeeded), strings.Join(r.Succeeded, ", "), strings.Join(r.Failed, ", "), strings.Join(r.Skipped, ", "), r.Err)
}
