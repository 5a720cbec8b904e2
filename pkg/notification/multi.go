package notification

import (
	"context"
	"errors"
)

// Multi fans a notification out to every gateway and joins their errors.
type Multi []Gateway

func (m Multi) Notify(ctx context.Context, userID string, kind Kind, data map[string]any) error {
	var errs []error

	for _, gateway := range m {
		err := gateway.Notify(ctx, userID, kind, data)
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
