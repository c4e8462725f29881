package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNewError(t *testing.T) {
	err := NewError(20001, "test error")

	if err.Code != 20001 {
		t.Errorf("Expected code 20001, got %d", err.Code)
	}
	if err.Message != "test error" {
		t.Errorf("Expected message 'test error', got '%s'", err.Message)
	}
	if err.Err != nil {
		t.Error("Expected Err to be nil")
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			err:      NewError(20001, "room not found"),
			expected: "[20001] room not found",
		},
		{
			name:     "with wrapped error",
			err:      NewError(20001, "room not found").Wrap(errors.New("ROOM_NOT_FOUND")),
			expected: "[20001] room not found: ROOM_NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Expected '%s', got '%s'", tt.expected, got)
			}
		})
	}
}

func TestAppError_Wrap(t *testing.T) {
	original := errors.New("NOT_YOUR_TURN")
	appErr := ErrIllegalAction.Wrap(original)

	if appErr.Code != CodeIllegalAction {
		t.Errorf("Expected code %d, got %d", CodeIllegalAction, appErr.Code)
	}
	if !errors.Is(appErr, original) {
		t.Error("Expected errors.Is to find the wrapped error")
	}
	if ErrIllegalAction.Err != nil {
		t.Error("Wrap must not modify the predefined error")
	}
}

func TestIs(t *testing.T) {
	wrapped := fmt.Errorf("dispatch: %w", ErrRoomNotFound.Wrap(errors.New("x")))

	if !Is(wrapped, ErrRoomNotFound) {
		t.Error("Expected Is to match through fmt wrapping")
	}
	if Is(wrapped, ErrRoomFull) {
		t.Error("Expected Is not to match a different code")
	}
	if Is(errors.New("plain"), ErrRoomNotFound) {
		t.Error("Expected Is to be false for plain errors")
	}
}

func TestGetCodeAndMessage(t *testing.T) {
	if got := GetCode(ErrNoScores); got != CodeNoScores {
		t.Errorf("Expected %d, got %d", CodeNoScores, got)
	}
	if got := GetCode(errors.New("plain")); got != CodeServerError {
		t.Errorf("Expected %d, got %d", CodeServerError, got)
	}
	if got := GetMessage(ErrRoomFull); got != "room is full" {
		t.Errorf("Expected 'room is full', got '%s'", got)
	}
	if got := GetMessage(errors.New("plain")); got != "internal server error" {
		t.Errorf("Expected 'internal server error', got '%s'", got)
	}
}
