package pulptests

import (
	"context"

	"github.com/stretchr/testify/require"
)

// DoServiceTests covers stopping and restarting the deployment's services.
// These tests take the whole deployment down, so they only run nightly.
func DoServiceTests(t *T) {
	t.Run("stop and restart services", func(t *T) {
		t.RequireNightly()
		if t.env.svcMgr == nil {
			t.Skip("no service manager configured")
		}
		ctx := context.Background()

		require.True(t, t.env.svcMgr.StopAndCheck(ctx),
			"services still responding after stop")
		// Leave the deployment running for whatever test comes next, even if
		// the assertion above failed.
		t.Defer(func() {
			t.env.svcMgr.StartAndCheck(ctx)
		})
		require.True(t, t.env.svcMgr.StartAndCheck(ctx),
			"services did not become ready after start")

		status, code, err := t.Pulp().ReadStatus(ctx)
		require.NoError(t, err)
		require.Equal(t, 200, code)
		require.NotEmpty(t, status.OnlineWorkers)
		require.NotEmpty(t, status.OnlineContentApps)
		require.True(t, status.DatabaseConnection.Connected)
	})
}
