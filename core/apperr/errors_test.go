package apperr

import (
	"errors"
	"testing"
)

func TestWrappersPreserveSentinel(t *testing.T) {
	cases := []struct {
		err      error
		sentinel error
	}{
		{NotFoundf("track %d", 7), ErrNotFound},
		{Validationf("size %d exceeds limit", 42), ErrValidation},
		{Conflictf("release for event %d moved", 3), ErrConflictingState},
	}

	for _, c := range cases {
		if !errors.Is(c.err, c.sentinel) {
			t.Errorf("%v should match sentinel %v", c.err, c.sentinel)
		}
	}
}
