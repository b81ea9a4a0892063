package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RelayStarted()
		m.RelayFinished("getStakingConsts", time.Second, OutcomeOK)
		m.MetaWrite("stakingConsts", true)
		m.MetaRead("stakingConsts", "hit")
		m.SetSelected(3)
		m.Action("unstake", "begun")
	})
}

func TestCounters(t *testing.T) {
	m := New()

	m.RelayStarted()
	m.RelayStarted()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.relaysInFlight))

	m.RelayFinished("getValidatorsInfo", 200*time.Millisecond, OutcomeOK)
	m.RelayFinished("getNominations", 0, OutcomeTerminated)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.relaysInFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.relayResults.WithLabelValues("getValidatorsInfo", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.relayResults.WithLabelValues("getNominations", OutcomeTerminated)))

	m.MetaWrite("validatorsInfo", true)
	m.MetaWrite("validatorsInfo", false)
	m.MetaWrite("validatorsInfo", false)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.metaWrites.WithLabelValues("validatorsInfo", "unchanged")))

	m.SetSelected(16)
	assert.Equal(t, 16.0, testutil.ToFloat64(m.selectedValidators))
}

func TestHandlerExposesNamespace(t *testing.T) {
	m := New()
	m.Action("stakeAuto", "begun")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "easystake_staking_action_transitions_total")
}
