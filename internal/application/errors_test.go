package application

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, Kind("")},
		{"invalid input", invalidInput(ReasonTitleRequired, "Booking title is required"), KindInvalidInput},
		{"not found", notFound("Booking not found"), KindNotFound},
		{"conflict", conflict("Room is already booked for this time slot"), KindConflict},
		{"policy violation", policyViolation("Cannot cancel within 1 hour of start time"), KindPolicyViolation},
		{"duplicate name", duplicateName("Room with this name already exists"), KindDuplicateName},
		{"wrapped", fmt.Errorf("outer: %w", notFound("Booking not found")), KindNotFound},
		{"plain error", errors.New("boom"), KindInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := KindOf(tc.err); got != tc.want {
				t.Fatalf("KindOf() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDomainErrorUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := internalError("failed to persist booking", cause)

	if !errors.Is(err, cause) {
		t.Fatalf("expected the cause to be reachable via errors.Is")
	}
	if err.Error() != "failed to persist booking: disk full" {
		t.Fatalf("Error() = %q", err.Error())
	}
}

func TestErrorKindLabel(t *testing.T) {
	if got := ErrorKind(conflict("x")); got != "conflict" {
		t.Fatalf("ErrorKind() = %q", got)
	}
	if got := ErrorKind(nil); got != "" {
		t.Fatalf("ErrorKind(nil) = %q", got)
	}
}
