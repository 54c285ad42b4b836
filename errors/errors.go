package errors

import (
	"fmt"
	"strings"
)

var (
	ErrDecode              = fmt.Errorf("malformed entry document")
	ErrSubscriptionStarted = fmt.Errorf("subscription already started")
	ErrWorkerPanic         = fmt.Errorf("worker panic")
)

// indexHints are substrings emitted by store query planners when a live
// query cannot run without a supporting index. Matching is textual because
// the store reports this condition only through its error message.
var indexHints = []string{
	"requires an index",
	"no matching index",
	"index not found",
}

// IsIndexRequired reports whether err describes a missing store index.
// Such faults need operator action (create the index out-of-band) and are
// diagnosed separately from generic query faults.
func IsIndexRequired(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, hint := range indexHints {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}
