package common

import (
	"errors"
	"testing"
)

func TestGuard(t *testing.T) {
	if err := Guard(nil, "token"); err != nil {
		t.Fatalf("nil view: %v", err)
	}
	pauses := NewPauseSet()
	if err := Guard(pauses, ""); err != nil {
		t.Fatalf("empty module: %v", err)
	}
	if err := Guard(pauses, "token"); err != nil {
		t.Fatalf("running module: %v", err)
	}

	pauses.SetPaused("token", true)
	if err := Guard(pauses, "token"); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("err = %v, want ErrModulePaused", err)
	}
	if err := Guard(pauses, "sale"); err != nil {
		t.Fatalf("other module affected: %v", err)
	}

	pauses.SetPaused("token", false)
	if err := Guard(pauses, "token"); err != nil {
		t.Fatalf("resumed module: %v", err)
	}
}
