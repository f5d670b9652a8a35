package browser

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"ArticlesPipeline/internal/domain"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want error
	}{
		{"stale node", errors.New("Could not find node with given id (-32000)"), domain.ErrStaleElement},
		{"detached context", errors.New("Cannot find context with specified id"), domain.ErrStaleElement},
		{"deadline", fmt.Errorf("wait: %w", context.DeadlineExceeded), domain.ErrWaitTimeout},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := mapError(tc.err); !errors.Is(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}

	other := errors.New("net::ERR_NAME_NOT_RESOLVED")
	if got := mapError(other); got != other {
		t.Fatalf("unrelated errors must pass through, got %v", got)
	}
}

func TestOptions(t *testing.T) {
	t.Parallel()

	base := len(Options(false, "", ""))
	if got := len(Options(true, "ua", "/usr/bin/chromium")); got != base+2 {
		t.Fatalf("expected headless and exec path options to be appended, got %d vs %d", got, base)
	}
}

func TestCloseWithoutStart(t *testing.T) {
	t.Parallel()

	if err := New(nil, nil).Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
}
