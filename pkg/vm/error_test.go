package vm

import (
	"errors"
	"strings"
	"testing"
)

func TestRuntimeError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *RuntimeError
		want string
	}{
		{
			name: "位置なし",
			err:  NewRuntimeError(ErrorBadCoercion, "bad value"),
			want: "[BAD_COERCION] bad value",
		},
		{
			name: "スクリプトと行",
			err:  NewRuntimeErrorAt(ErrorUnresolvedSymbol, "no label", "main.nss", 12),
			want: "[UNRESOLVED_SYMBOL] no label at main.nss:12",
		},
		{
			name: "行のみ",
			err:  NewRuntimeErrorAt(ErrorStackUnderflow, "empty", "", 3),
			want: "[STACK_UNDERFLOW] empty at line 3",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRuntimeError_IsFatal(t *testing.T) {
	types := []ErrorType{
		ErrorUnresolvedSymbol, ErrorMissingObject, ErrorBadCoercion, ErrorStackUnderflow,
		ErrorBreakOutsideLoop, ErrorResourceUnavailable, ErrorInvalidOperation,
	}
	for _, typ := range types {
		if NewRuntimeError(typ, "x").IsFatal() {
			t.Errorf("%s should not be fatal", typ)
		}
	}
	if !NewRuntimeError(ErrorEmptyContext, "x").IsFatal() {
		t.Error("EMPTY_CONTEXT should be fatal")
	}
}

func TestErrorHelpers(t *testing.T) {
	if err := NewUnresolvedSymbolError("label.x"); err.Type != ErrorUnresolvedSymbol || !strings.Contains(err.Message, "label.x") {
		t.Errorf("unexpected %v", err)
	}
	if err := NewMissingObjectError("Box/a"); err.Type != ErrorMissingObject || !strings.Contains(err.Message, "Box/a") {
		t.Errorf("unexpected %v", err)
	}
	err := NewResourceError("bg.png", errors.New("not found"))
	if err.Type != ErrorResourceUnavailable || !strings.Contains(err.Error(), "not found") {
		t.Errorf("unexpected %v", err)
	}
	var rerr *RuntimeError
	if !errors.As(error(err), &rerr) || rerr.Line != -1 {
		t.Error("errors.As should unwrap a RuntimeError without position")
	}
}
