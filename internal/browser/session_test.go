package browser

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/arjun/flowtest/internal/dsl"
)

type fakeClickOps struct {
	strictErr      error
	firstVisibleOK bool
	fallbacksOK    bool

	strictCalls       int
	firstVisibleCalls int
	fallbackCalls     int
}

func (f *fakeClickOps) strict(ctx context.Context) error {
	f.strictCalls++
	return f.strictErr
}

func (f *fakeClickOps) firstVisible(ctx context.Context) bool {
	f.firstVisibleCalls++
	return f.firstVisibleOK
}

func (f *fakeClickOps) fallbacks(ctx context.Context, name string) bool {
	f.fallbackCalls++
	return f.fallbacksOK
}

func TestClickRecoversAmbiguityViaFirstVisible(t *testing.T) {
	ops := &fakeClickOps{
		strictErr:      &AmbiguityError{Target: `role=button name="Save"`, Matches: 3},
		firstVisibleOK: true,
	}
	target := dsl.RoleTarget{Role: "button", Name: "Save"}

	if err := clickWithRecovery(context.Background(), ops, target); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ops.firstVisibleCalls != 1 {
		t.Errorf("firstVisible called %d times, want 1", ops.firstVisibleCalls)
	}
	if ops.fallbackCalls != 0 {
		t.Errorf("fallbacks called %d times, want 0 when first visible succeeds", ops.fallbackCalls)
	}
}

func TestClickAmbiguityFallsThroughToTextCascade(t *testing.T) {
	ops := &fakeClickOps{
		strictErr:      &AmbiguityError{Target: `role=button name="Save"`, Matches: 3},
		firstVisibleOK: false,
		fallbacksOK:    true,
	}
	target := dsl.RoleTarget{Role: "button", Name: "Save"}

	if err := clickWithRecovery(context.Background(), ops, target); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ops.firstVisibleCalls != 1 {
		t.Errorf("firstVisible called %d times, want 1", ops.firstVisibleCalls)
	}
	if ops.fallbackCalls != 1 {
		t.Errorf("fallbacks called %d times, want 1 after first visible fails", ops.fallbackCalls)
	}
}

func TestClickNotVisibleFallsThroughToTextCascade(t *testing.T) {
	ops := &fakeClickOps{
		strictErr:   &NotVisibleError{Target: `role=button name="Submit"`},
		fallbacksOK: true,
	}
	target := dsl.RoleTarget{Role: "button", Name: "Submit"}

	if err := clickWithRecovery(context.Background(), ops, target); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ops.fallbackCalls != 1 {
		t.Errorf("fallbacks called %d times, want 1", ops.fallbackCalls)
	}
}

func TestClickTimeoutSkipsFirstVisible(t *testing.T) {
	ops := &fakeClickOps{
		strictErr:   timeoutErrf("no element matched //button within 15s"),
		fallbacksOK: true,
	}
	target := dsl.RoleTarget{Role: "button", Name: "Save"}

	if err := clickWithRecovery(context.Background(), ops, target); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ops.firstVisibleCalls != 0 {
		t.Errorf("firstVisible called %d times on timeout, want 0", ops.firstVisibleCalls)
	}
	if ops.fallbackCalls != 1 {
		t.Errorf("fallbacks called %d times, want 1", ops.fallbackCalls)
	}
}

func TestClickExhaustedCascadeWrapsOriginalError(t *testing.T) {
	ops := &fakeClickOps{
		strictErr: &AmbiguityError{Target: `role=button name="Save"`, Matches: 2},
	}
	target := dsl.RoleTarget{Role: "button", Name: "Save"}

	err := clickWithRecovery(context.Background(), ops, target)
	if err == nil {
		t.Fatal("want error after every recovery path fails")
	}
	if !IsTimeout(err) {
		t.Errorf("exhausted cascade should classify as timeout, got %T", err)
	}
	if !strings.Contains(err.Error(), "Provide an explicit selector") {
		t.Errorf("error should suggest an explicit selector, got %q", err)
	}
	if !strings.Contains(err.Error(), "matched 2 elements") {
		t.Errorf("error should carry the original failure, got %q", err)
	}
}

func TestClickNonButtonKeepsOriginalError(t *testing.T) {
	ops := &fakeClickOps{
		strictErr: &NotVisibleError{Target: `label="Remember me"`},
	}
	target := dsl.LabelTarget{Label: "Remember me"}

	err := clickWithRecovery(context.Background(), ops, target)
	var nv *NotVisibleError
	if !errors.As(err, &nv) {
		t.Fatalf("want NotVisibleError back for non-button targets, got %v", err)
	}
	if ops.firstVisibleCalls != 1 {
		t.Errorf("firstVisible called %d times, want 1", ops.firstVisibleCalls)
	}
	if ops.fallbackCalls != 0 {
		t.Errorf("fallbacks called %d times, want 0 for non-button targets", ops.fallbackCalls)
	}
}
