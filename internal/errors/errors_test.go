package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestBenchError_Error(t *testing.T) {
	err := New(ErrCategoryConfiguration, CodeNotADirectory, "not a directory: /nope")
	expected := "[CONFIGURATION:NOT_A_DIRECTORY] not a directory: /nope"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestBenchError_ErrorWithCause(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := Wrap(ErrCategoryExecution, CodeWriteFailed, "write failed", cause)
	expected := "[EXECUTION:WRITE_FAILED] write failed: disk full"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestBenchError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := NewIntegrityError(CodeMalformedRecord, "bad line", cause)
	if !errors.Is(err, cause) {
		t.Error("Unwrap should allow errors.Is to find the cause")
	}
}

func TestBenchError_Is(t *testing.T) {
	err1 := NewNotSupportedError(CodeNoDecompress, "first")
	err2 := NewNotSupportedError(CodeNoDecompress, "second")
	err3 := NewConfigurationError(CodeInvalidSchema, "different")

	if !errors.Is(err1, err2) {
		t.Error("errors with same category+code should match via Is")
	}
	if errors.Is(err1, err3) {
		t.Error("errors with different category should not match via Is")
	}
}

func TestCategoryHelpers_WrappedChain(t *testing.T) {
	base := NewNotSupportedError(CodeNoDecompress, "Parquet has no decompress step")
	wrapped := fmt.Errorf("decompress: %w", base)

	if !IsNotSupported(wrapped) {
		t.Error("IsNotSupported should see through fmt wrapping")
	}
	if IsConfiguration(wrapped) || IsExecution(wrapped) || IsIntegrity(wrapped) {
		t.Error("a not-supported error must not match other categories")
	}
	if got := GetCode(wrapped); got != CodeNoDecompress {
		t.Errorf("GetCode = %q, want %q", got, CodeNoDecompress)
	}
}

func TestGetCategory_NonBenchError(t *testing.T) {
	if got := GetCategory(fmt.Errorf("plain")); got != "" {
		t.Errorf("GetCategory = %q, want empty", got)
	}
	if got := GetCode(nil); got != "" {
		t.Errorf("GetCode(nil) = %q, want empty", got)
	}
}

func TestWithDetails_Copies(t *testing.T) {
	orig := NewConfigurationError(CodeInvalidSchema, "bad schema")
	detailed := orig.WithDetails(map[string]interface{}{"schema": "ix"})
	if orig.Details != nil {
		t.Error("WithDetails must not mutate the receiver")
	}
	if detailed.Details["schema"] != "ix" {
		t.Errorf("Details = %v", detailed.Details)
	}
}
