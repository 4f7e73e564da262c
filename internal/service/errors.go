package service

import (
	"context"
	"errors"

	apperrors "github.com/spec-kit/result-service/pkg/util/errorutil"
)

// storeFailure converts an unexpected repository error into the 503 taxonomy entry.
// Cancellation by the caller keeps its own identity so handlers do not report an
// outage for a client that went away.
func storeFailure(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return apperrors.NewUnavailable(err)
}
