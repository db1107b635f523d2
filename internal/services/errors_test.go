package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"trawl/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrStructural, "fetch", "metadata", "item struct missing", base)
	if !errors.Is(err, services.ErrStructural) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"fetch", "metadata", "item struct missing", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestKindOfClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want services.ErrorKind
	}{
		{"nil", nil, ""},
		{"structural", services.Wrap(services.ErrStructural, "fetch", "", "", nil), services.ErrorKindStructural},
		{"not found", services.Wrap(services.ErrNotFound, "fetch", "", "", nil), services.ErrorKindNotFound},
		{"io", services.Wrap(services.ErrIO, "persist", "", "", nil), services.ErrorKindIO},
		{"deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), services.ErrorKindTransient},
		{"bare marker", fmt.Errorf("x: %w", services.ErrNotFound), services.ErrorKindNotFound},
		{"unknown", errors.New("weird"), services.ErrorKindUnknown},
	}
	for _, tc := range cases {
		if got := services.KindOf(tc.err); got != tc.want {
			t.Fatalf("%s: got %q want %q", tc.name, got, tc.want)
		}
	}
}

func TestCodesAndFailureMessage(t *testing.T) {
	notFound := services.Wrap(services.ErrNotFound, "fetch", "metadata", "status 404", nil)
	if code := services.CodeOf(notFound); code != services.CodeNotFound {
		t.Fatalf("expected code V, got %q", code)
	}
	partial := services.WithCode(services.Wrap(services.ErrTransient, "fetch", "binary", "timeout", nil), services.CodePartial)
	if code := services.CodeOf(partial); code != services.CodePartial {
		t.Fatalf("expected code P, got %q", code)
	}
	if services.KindOf(partial) != services.ErrorKindTransient {
		t.Fatalf("expected WithCode to keep kind, got %q", services.KindOf(partial))
	}
	if msg := services.FailureMessage(notFound); !strings.HasPrefix(msg, "V: ") {
		t.Fatalf("expected code prefix, got %q", msg)
	}
	if code := services.CodeOf(errors.New("other")); code != services.CodeOther {
		t.Fatalf("expected code O for unclassified error, got %q", code)
	}
}

func TestDetailsForPlainError(t *testing.T) {
	details := services.Details(fmt.Errorf("dial: %w", context.DeadlineExceeded))
	if details.Kind != services.ErrorKindTransient || details.Code != services.CodeNoData {
		t.Fatalf("unexpected details: %+v", details)
	}
	if details.Hint == "" {
		t.Fatal("expected default hint")
	}
}
