package usbdev

import (
	"errors"
	"testing"
)

func TestErrorWrapping(t *testing.T) {
	base := errors.New("busy")
	err := func() (err error) {
		defer wrapErr("Open", &err)
		return base
	}()

	var uerr *Error
	if !errors.As(err, &uerr) {
		t.Fatalf("Expected *Error, got %T", err)
	}
	if uerr.Op != "Open" {
		t.Errorf("Expected op Open, got %s", uerr.Op)
	}
	if !errors.Is(err, base) {
		t.Error("Expected wrapped error to match base")
	}
	if err.Error() != "usbdev: Open: busy" {
		t.Errorf("Unexpected message %q", err.Error())
	}

	noErr := func() (err error) {
		defer wrapErr("Close", &err)
		return nil
	}()
	if noErr != nil {
		t.Errorf("Expected nil, got %v", noErr)
	}
}
