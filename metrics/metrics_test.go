package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAreServed(t *testing.T) {
	before := testutil.ToFloat64(SkippedBars.WithLabelValues("metrics_test"))
	SkippedBars.WithLabelValues("metrics_test").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(SkippedBars.WithLabelValues("metrics_test")))

	ReplayFallbacks.Inc()

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `signalbot_skipped_bars_total{strategy="metrics_test"}`)
	assert.Contains(t, string(body), "signalbot_replay_fallbacks_total")
}
