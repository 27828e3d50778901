package storage

import (
	"errors"
	"testing"

	"schooltone/core/apperr"
)

func TestMatchRecordedParts(t *testing.T) {
	recorded := map[int]string{1: "e1", 2: "e2", 3: "e3"}

	t.Run("full manifest matches", func(t *testing.T) {
		parts := []Part{{Index: 1, ETag: "e1"}, {Index: 2, ETag: `"e2"`}, {Index: 3, ETag: "e3"}}
		complete, err := matchRecordedParts("k", recorded, parts)
		if err != nil {
			t.Fatalf("matchRecordedParts failed: %v", err)
		}
		if len(complete) != 3 {
			t.Errorf("got %d complete parts, want 3", len(complete))
		}
	})

	mismatchCases := []struct {
		name  string
		parts []Part
	}{
		{"etag mismatch", []Part{
			{Index: 1, ETag: "e1"}, {Index: 2, ETag: "wrong"}, {Index: 3, ETag: "e3"},
		}},
		{"part never uploaded", []Part{
			{Index: 1, ETag: "e1"}, {Index: 2, ETag: "e2"}, {Index: 4, ETag: "e4"},
		}},
		{"fewer than recorded", []Part{
			{Index: 1, ETag: "e1"}, {Index: 2, ETag: "e2"},
		}},
		{"duplicate index pads the count", []Part{
			{Index: 1, ETag: "e1"}, {Index: 1, ETag: "e1"}, {Index: 2, ETag: "e2"},
		}},
	}

	for _, tc := range mismatchCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := matchRecordedParts("k", recorded, tc.parts); !errors.Is(err, apperr.ErrIntegrityMismatch) {
				t.Errorf("expected ErrIntegrityMismatch, got %v", err)
			}
		})
	}
}

func TestValidateKey(t *testing.T) {
	valid := []string{"events/1/classes/10/a.mp3", "previews/events/1/classes/10/a.mp3"}
	for _, key := range valid {
		if err := validateKey(key); err != nil {
			t.Errorf("validateKey(%q) = %v, want nil", key, err)
		}
	}

	invalid := []string{"", "/absolute.mp3", "events/../escape.mp3"}
	for _, key := range invalid {
		if err := validateKey(key); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("validateKey(%q) = %v, want ErrValidation", key, err)
		}
	}
}
