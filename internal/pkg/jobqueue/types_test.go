package jobqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailDeliveryJobPayload_RoundTrip(t *testing.T) {
	payload := EmailDeliveryJobPayload{
		To:      "ana@example.com",
		Subject: "You have reached 90% of your monthly AI requests",
		Body:    "<p>Heads up</p>",
		Kind:    "quota_warning_90",
		UserID:  7,
	}

	result, err := EmailDeliveryJobPayloadFromMap(payload.ToMap())
	require.NoError(t, err)
	assert.Equal(t, &payload, result)
}

func TestQuotaResetSweepJobPayload_Continuation(t *testing.T) {
	payload := QuotaResetSweepJobPayload{
		BatchSize: 500,
		CursorID:  1200,
	}

	result, err := QuotaResetSweepJobPayloadFromMap(payload.ToMap())
	require.NoError(t, err)
	assert.Equal(t, uint(1200), result.CursorID)
	assert.Equal(t, 500, result.BatchSize)
}

func TestUsageArchiveJobPayload_RoundTrip(t *testing.T) {
	payload := UsageArchiveJobPayload{Year: 2026, Month: 7}

	result, err := UsageArchiveJobPayloadFromMap(payload.ToMap())
	require.NoError(t, err)
	assert.Equal(t, &payload, result)
}

func TestPayloadFromMapErrors(t *testing.T) {
	invalidData := map[string]interface{}{
		"invalid": make(chan int), // Channels can't be marshaled to JSON
	}

	payload, err := EmailDeliveryJobPayloadFromMap(invalidData)
	assert.Error(t, err)
	assert.Nil(t, payload)
}
