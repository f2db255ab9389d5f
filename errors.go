package vecingest

import (
	"context"
	"errors"

	"github.com/hupe1980/vecingest/status"
	"github.com/hupe1980/vecingest/value"
)

// ErrClosed is returned by every operation on a closed Database.
var ErrClosed = errors.New("vecingest: database closed")

// translateError normalizes errors from collaborators into classified
// status errors. fallback is the code for errors that carry no
// classification of their own.
func translateError(err error, fallback status.Code) error {
	if err == nil {
		return nil
	}

	var se *status.Error
	if errors.As(err, &se) {
		return err
	}

	switch {
	case errors.Is(err, ErrClosed):
		return status.Wrap(status.Internal, err, "database closed")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.Wrap(status.Internal, err, "insert aborted")
	case errors.Is(err, value.ErrMalformed):
		return status.Wrap(status.SyntaxError, err, "malformed row payload")
	}

	return status.Wrap(fallback, err, "")
}
