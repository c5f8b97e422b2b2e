package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type samplePayload struct {
	BookingID string `json:"booking_id"`
	Amount    int64  `json:"amount"`
}

func TestCloudEvent_RoundTrip(t *testing.T) {
	evt, err := NewCloudEvent("service-booking", "booking.created", "b-1", samplePayload{BookingID: "b-1", Amount: 20000})
	require.NoError(t, err)
	assert.Equal(t, "1.0", evt.SpecVersion)
	assert.NotEmpty(t, evt.ID)
	assert.Equal(t, "application/json", evt.DataContentType)

	raw, err := json.Marshal(evt)
	require.NoError(t, err)

	parsed, err := ParseCloudEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, "booking.created", parsed.Type)
	assert.Equal(t, "b-1", parsed.Subject)

	var payload samplePayload
	require.NoError(t, parsed.ParseData(&payload))
	assert.Equal(t, int64(20000), payload.Amount)
}

func TestParseCloudEvent_Invalid(t *testing.T) {
	_, err := ParseCloudEvent([]byte("not json"))
	assert.Error(t, err)

	_, err = ParseCloudEvent([]byte(`{"id":"x"}`))
	assert.Error(t, err)
}

func TestRunWithRetry(t *testing.T) {
	calls := 0
	err := runWithRetry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)

	calls = 0
	err = runWithRetry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return errors.New("permanent")
	})
	assert.EqualError(t, err, "permanent")
	assert.Equal(t, 3, calls)
}

func TestRunWithRetry_AtLeastOnce(t *testing.T) {
	calls := 0
	err := runWithRetry(context.Background(), 0, time.Millisecond, func() error {
		calls++
		return errors.New("fail")
	})
	assert.EqualError(t, err, "fail")
	assert.Equal(t, 1, calls)
}

func TestRunWithRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runWithRetry(ctx, 5, time.Second, func() error { return errors.New("fail") })
	assert.ErrorIs(t, err, context.Canceled)
}
