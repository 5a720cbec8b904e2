// Package directory resolves designations to the users currently holding them.
package directory

import (
	"context"
	"errors"
	"slices"
)

// ErrDesignationRequired is returned when an empty designation is resolved.
var ErrDesignationRequired = errors.New("designation id is required")

// UserDirectory answers which active users hold a designation.
type UserDirectory interface {
	ResolveApprovers(ctx context.Context, designationID string) ([]string, error)
}

// normalize sorts ids and drops blanks and duplicates so every adapter
// answers in the same deterministic order.
func normalize(ids []string) []string {
	out := make([]string, 0, len(ids))

	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}

	slices.Sort(out)

	return slices.Compact(out)
}
