package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKindMatching(t *testing.T) {
	err := fmt.Errorf("deleting: %w", Errorf(KindNotFound, "record %s not found", "abc"))

	if !errors.Is(err, ErrNotFound) {
		t.Error("expected wrapped error to match ErrNotFound")
	}
	if errors.Is(err, ErrPermissionDenied) {
		t.Error("did not expect match with ErrPermissionDenied")
	}
	if KindOf(err) != KindNotFound {
		t.Errorf("expected KindNotFound, got %v", KindOf(err))
	}
	if Message(err) != "record abc not found" {
		t.Errorf("unexpected message %q", Message(err))
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(KindUnavailable, "x", nil) != nil {
		t.Error("expected nil for nil cause")
	}
}

func TestKindOfUnclassified(t *testing.T) {
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Error("expected KindUnknown for plain error")
	}
}

func TestTypeValid(t *testing.T) {
	if !TypeLost.Valid() || !TypeFound.Valid() {
		t.Error("expected lost and found to be valid")
	}
	if Type("stolen").Valid() {
		t.Error("expected unknown type to be invalid")
	}
}
