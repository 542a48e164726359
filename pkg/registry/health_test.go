package registry_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uaesivakumar/agenthub/pkg/errors"
	"github.com/uaesivakumar/agenthub/pkg/registry"
	"github.com/uaesivakumar/agenthub/pkg/tool/tooltest"
)

func TestHealthProbe_MarksOffline(t *testing.T) {
	r := registry.New(nil)
	failing := tooltest.Failing(fmt.Errorf("connection refused"))
	require.NoError(t, r.Register(descriptor(t, "FlakyTool"), failing))

	r.StartHealthProbe(10 * time.Millisecond)
	defer r.StopHealthProbe()

	assert.Eventually(t, func() bool {
		_, _, err := r.Get("FlakyTool")
		return errors.KindOf(err) == errors.KindToolOffline
	}, time.Second, 5*time.Millisecond)
}

func TestHealthProbe_Recovers(t *testing.T) {
	r := registry.New(nil)
	// Fails once, then recovers.
	flaky := tooltest.NewFake(
		tooltest.Response{Err: fmt.Errorf("transient outage")},
		tooltest.Response{Output: map[string]any{"status": "ok"}},
	)
	require.NoError(t, r.Register(descriptor(t, "FlakyTool"), flaky))

	r.StartHealthProbe(10 * time.Millisecond)
	defer r.StopHealthProbe()

	assert.Eventually(t, func() bool {
		infos := r.List()
		return len(infos) == 1 &&
			infos[0].Status == registry.StatusHealthy &&
			!infos[0].LastHealthAt.IsZero() &&
			flaky.CallCount() >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestHealthProbe_UsesHealthInput(t *testing.T) {
	r := registry.New(nil)
	fake := tooltest.Returning(map[string]any{"status": "ok"})
	desc := descriptor(t, "CompanyQualityTool")
	desc.HealthInput = map[string]any{"company_name": "probe", "size": 1}
	require.NoError(t, r.Register(desc, fake))

	r.StartHealthProbe(time.Hour) // initial sweep only
	defer r.StopHealthProbe()

	require.Eventually(t, func() bool { return fake.CallCount() >= 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "probe", fake.Input(0)["company_name"])
}

func TestHealthProbe_StopWaitsForInFlight(t *testing.T) {
	r := registry.New(nil)
	slow := tooltest.NewFake(tooltest.Response{
		Output: map[string]any{},
		Delay:  50 * time.Millisecond,
	})
	require.NoError(t, r.Register(descriptor(t, "SlowTool"), slow))

	r.StartHealthProbe(10 * time.Millisecond)
	require.Eventually(t, func() bool { return slow.CallCount() >= 1 }, time.Second, time.Millisecond)

	r.StopHealthProbe()
	count := slow.CallCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, count, slow.CallCount(), "no probe may run after StopHealthProbe returns")
}

func TestHealthProbe_StopIdempotent(t *testing.T) {
	r := registry.New(nil)
	r.StopHealthProbe()
	r.StartHealthProbe(time.Hour)
	r.StopHealthProbe()
	r.StopHealthProbe()
}

func TestReady(t *testing.T) {
	r := registry.New(nil)
	require.NoError(t, r.Register(descriptor(t, "GoodTool"), tooltest.Returning(map[string]any{})))

	assert.False(t, r.Ready(), "not ready before the first sweep")

	r.StartHealthProbe(time.Hour)
	defer r.StopHealthProbe()

	assert.Eventually(t, func() bool { return r.Ready() }, time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, r.SweepCount(), 1)
}

func TestReady_AllOffline(t *testing.T) {
	r := registry.New(nil)
	require.NoError(t, r.Register(descriptor(t, "DeadTool"), tooltest.Failing(fmt.Errorf("down"))))

	r.StartHealthProbe(time.Hour)
	defer r.StopHealthProbe()

	require.Eventually(t, func() bool { return r.SweepCount() >= 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, r.Ready())
}
