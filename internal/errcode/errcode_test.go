package errcode

import (
	"errors"
	"fmt"
	"testing"
)

func TestOf(t *testing.T) {
	base := errors.New("boom")
	wrapped := fmt.Errorf("render export: %w", Wrap(RenderFailed, base))

	if got := Of(wrapped); got != RenderFailed {
		t.Fatalf("Of() = %d", got)
	}
	if !errors.Is(wrapped, base) {
		t.Fatal("wrapped error must keep its cause")
	}
	if got := Of(base); got != SystemError {
		t.Fatalf("uncoded error = %d", got)
	}
	if Of(nil) != OK || Wrap(InvalidRecord, nil) != nil {
		t.Fatal("nil error must stay nil")
	}
}
