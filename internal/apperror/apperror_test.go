package apperror

import (
	"errors"
	"testing"
)

func TestAsReturnsAuthErrorUnchanged(t *testing.T) {
	got := As(ErrInvalidCredentials)
	if got != ErrInvalidCredentials {
		t.Fatalf("As(AuthError) = %v, want the same instance", got)
	}
}

func TestAsWrapsUnknownError(t *testing.T) {
	cause := errors.New("boom")
	got := As(cause)
	if got.Code != CodeInternal {
		t.Errorf("Code = %q, want %q", got.Code, CodeInternal)
	}
	if !errors.Is(got, cause) {
		t.Error("wrapped error should unwrap to the original cause")
	}
}

func TestEnvelopeShape(t *testing.T) {
	env := ErrInvalidCredentials.Envelope()
	if env.Success {
		t.Error("error envelope must have success=false")
	}
	if env.Error == nil || env.Error.Code != CodeInvalidCredentials {
		t.Fatalf("Envelope.Error = %+v", env.Error)
	}
}

func TestLoginFailureBranchesShareOneCode(t *testing.T) {
	// spec.md P1/P2: "no such user", "wrong password", "locked", and
	// "inactive" must be indistinguishable to the caller.
	if ErrInvalidCredentials.Code != CodeInvalidCredentials {
		t.Fatal("ErrInvalidCredentials must carry AUTH's generic code")
	}
	if ErrInvalidCredentials.Message != GenericAuthMessage {
		t.Errorf("Message = %q, want the generic message", ErrInvalidCredentials.Message)
	}
}
