package errors

import "testing"

func TestCompileErrorRendering(t *testing.T) {
	err := NewCompileError("Expect ';' after value.", 12)
	got := err.Error()
	want := "[line 12] CompileError: Expect ';' after value."
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestRuntimeErrorWithStack(t *testing.T) {
	err := NewRuntimeError("Operands must be numbers.", 5).WithStack([]StackFrame{
		{Function: "inc", Line: 5},
		{Function: "", Line: 10},
	})
	got := err.Error()
	want := "[line 5] RuntimeError: Operands must be numbers.\n" +
		"[line 5] in inc()\n" +
		"[line 10] in script"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestErrorWithoutLocationOmitsLinePrefix(t *testing.T) {
	err := &LangError{Type: InternalError, Message: "unreachable"}
	got := err.Error()
	want := "InternalError: unreachable"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestWithStackReturnsSameError(t *testing.T) {
	err := NewRuntimeError("boom", 1)
	if got := err.WithStack(nil); got != err {
		t.Error("WithStack should return the same *LangError for chaining")
	}
}
