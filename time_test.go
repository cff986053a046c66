package auth_test

import (
	"testing"
	"time"

	auth "github.com/mortgagematch/go-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsWithinThresholdPeriod(t *testing.T) {
	recent := time.Now().Add(-time.Minute)
	within, err := auth.IsWithinThresholdPeriod(recent, "1h")
	require.NoError(t, err)
	assert.True(t, within)

	old := time.Now().Add(-2 * time.Hour)
	within, err = auth.IsWithinThresholdPeriod(old, "1h")
	require.NoError(t, err)
	assert.False(t, within)
}

func TestIsOutsideThresholdPeriod(t *testing.T) {
	old := time.Now().Add(-48 * time.Hour)
	outside, err := auth.IsOutsideThresholdPeriod(old, "24h")
	require.NoError(t, err)
	assert.True(t, outside)

	recent := time.Now().Add(-time.Hour)
	outside, err = auth.IsOutsideThresholdPeriod(recent, "24h")
	require.NoError(t, err)
	assert.False(t, outside)
}

func TestThresholdPeriodRejectsBadPattern(t *testing.T) {
	_, err := auth.IsWithinThresholdPeriod(time.Now(), "not-a-duration")
	assert.Error(t, err)
}
