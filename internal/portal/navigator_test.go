package portal

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/narabid/bid-crawler/internal/browser"
)

const testEntryURL = "https://portal.example/main"

func TestEnsureAtSearchFormSuccess(t *testing.T) {
	t.Parallel()
	f := browser.NewFake()
	f.Present[selSearchButton] = true
	f.OpenTargets = []string{"main", "promo-window"}
	f.Present[".w2window_close"] = true

	nav := NewNavigator(f, testEntryURL, 3, nil)
	require.True(t, nav.EnsureAtSearchForm(context.Background()))

	calls := f.CallLog()
	require.Contains(t, calls, "Navigate:"+testEntryURL)
	require.Contains(t, calls, "CloseTarget:promo-window")
	require.Contains(t, calls, "Click:.w2window_close")
	require.Contains(t, calls, "SendEscape")
	require.Contains(t, calls, "Click:"+selMenuBid)
	require.Contains(t, calls, "WaitVisible:"+selSearchButton)
}

func TestEnsureAtSearchFormExhaustsRetries(t *testing.T) {
	t.Parallel()
	f := browser.NewFake()
	// Search button never becomes visible; every attempt times out.

	nav := NewNavigator(f, testEntryURL, 2, nil)
	require.False(t, nav.EnsureAtSearchForm(context.Background()))

	navigations := 0
	for _, call := range f.CallLog() {
		if strings.HasPrefix(call, "Navigate:") {
			navigations++
		}
	}
	require.Equal(t, 2, navigations, "each attempt restarts from the entry URL")
}

func TestEnsureAtSearchFormStopsOnCanceledContext(t *testing.T) {
	t.Parallel()
	f := browser.NewFake()
	f.Present[selSearchButton] = true

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	nav := NewNavigator(f, testEntryURL, 3, nil)
	require.False(t, nav.EnsureAtSearchForm(ctx))
	require.NotContains(t, f.CallLog(), "Navigate:"+testEntryURL)
}
