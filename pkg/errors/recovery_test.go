package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestRecover_WithPanic(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "SVC.Fit")
		panic("index out of range")
	}

	err := testFunc()
	if err == nil {
		t.Fatal("Expected error from recovered panic, got nil")
	}

	var panicErr *PanicError
	if !errors.As(err, &panicErr) {
		t.Fatalf("Expected PanicError, got %T", err)
	}
	if panicErr.Operation != "SVC.Fit" {
		t.Errorf("Expected operation 'SVC.Fit', got '%s'", panicErr.Operation)
	}
	if panicErr.StackTrace == "" {
		t.Error("Expected non-empty stack trace")
	}
	if want := "panic in SVC.Fit: index out of range"; panicErr.Error() != want {
		t.Errorf("Expected error message '%s', got '%s'", want, panicErr.Error())
	}
}

func TestRecover_WithoutPanic(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "SVC.Fit")
		return nil
	}

	if err := testFunc(); err != nil {
		t.Fatalf("Expected no error when no panic occurs, got: %v", err)
	}
}

func TestRecover_WithExistingError(t *testing.T) {
	originalErr := fmt.Errorf("original error")

	testFunc := func() (err error) {
		defer Recover(&err, "fold 2")
		err = originalErr
		panic("panic after error")
	}

	err := testFunc()
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !strings.Contains(err.Error(), "panic in fold 2") {
		t.Errorf("Error message should contain panic info: %s", err)
	}
	if !errors.Is(err, originalErr) {
		t.Error("Should be able to identify original error with errors.Is")
	}
}

func TestSafeExecute(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		if err := SafeExecute("op", func() error { return nil }); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
	})

	t.Run("function error passes through", func(t *testing.T) {
		originalErr := fmt.Errorf("function error")
		if err := SafeExecute("op", func() error { return originalErr }); err != originalErr {
			t.Fatalf("Expected original error, got: %v", err)
		}
	})

	t.Run("panic with error value unwraps", func(t *testing.T) {
		cause := errors.New("matrix dimension error")
		err := SafeExecute("op", func() error { panic(cause) })

		var panicErr *PanicError
		if !errors.As(err, &panicErr) {
			t.Fatalf("Expected PanicError, got %T", err)
		}
		if !errors.Is(err, cause) {
			t.Error("Expected PanicError to unwrap to the panic value")
		}
	})

	t.Run("panic with integer", func(t *testing.T) {
		err := SafeExecute("op", func() error { panic(42) })
		if err == nil || err.Error() != "panic in op: 42" {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestPanicError_String(t *testing.T) {
	panicErr := NewPanicError("TestOp", "test value")

	str := panicErr.String()
	if !strings.Contains(str, "Stack trace:") {
		t.Error("String() should include stack trace information")
	}
	if panicErr.Unwrap() != nil {
		t.Error("Unwrap() should return nil for non-error panic values")
	}
}
