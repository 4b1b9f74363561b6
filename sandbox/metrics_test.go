package sandbox

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutionMetrics(t *testing.T) {
	completed := testutil.ToFloat64(executionsTotal.WithLabelValues("python", outcomeCompleted))
	timedOut := testutil.ToFloat64(executionsTotal.WithLabelValues("python", outcomeTimedOut))
	unsupported := testutil.ToFloat64(executionsTotal.WithLabelValues(otherLanguage, outcomeUnsupported))
	kills := testutil.ToFloat64(killsTotal.WithLabelValues(killSucceeded))

	launcher := newFakeLauncher(echoProgram)
	supervisor := newTestSupervisor(t, launcher, testPolicy())

	_, err := supervisor.Execute(context.Background(), ExecuteRequest{Language: "python", Code: "x"})
	require.NoError(t, err)
	_, err = supervisor.Execute(context.Background(), ExecuteRequest{Language: "cobol", Code: "x"})
	require.Error(t, err)

	hanging := newFakeLauncher(hangingProgram)
	policy := testPolicy()
	policy.Timeout = 20 * time.Millisecond
	_, err = newTestSupervisor(t, hanging, policy).Execute(context.Background(), ExecuteRequest{Language: "python", Code: "x"})
	require.NoError(t, err)

	assert.InDelta(t, completed+1, testutil.ToFloat64(executionsTotal.WithLabelValues("python", outcomeCompleted)), 0)
	assert.InDelta(t, timedOut+1, testutil.ToFloat64(executionsTotal.WithLabelValues("python", outcomeTimedOut)), 0)
	assert.InDelta(t, unsupported+1, testutil.ToFloat64(executionsTotal.WithLabelValues(otherLanguage, outcomeUnsupported)), 0)
	assert.InDelta(t, kills+1, testutil.ToFloat64(killsTotal.WithLabelValues(killSucceeded)), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(activeSandboxes), 0)
}
