package kafka

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleEvent struct {
	BookingID string `json:"booking_id"`
	Payout    string `json:"payout"`
}

func TestCloudEventRoundTrip(t *testing.T) {
	ce, err := NewCloudEvent("service-booking", "booking.completed", sampleEvent{BookingID: "b-1", Payout: "2600.00"})
	require.NoError(t, err)
	assert.Equal(t, "1.0", ce.SpecVersion)
	assert.NotEmpty(t, ce.ID)

	raw, err := json.Marshal(ce)
	require.NoError(t, err)

	parsed, err := ParseCloudEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, "booking.completed", parsed.Type)

	var data sampleEvent
	require.NoError(t, parsed.ParseData(&data))
	assert.Equal(t, "2600.00", data.Payout)
}

func TestParseCloudEventRejectsUntyped(t *testing.T) {
	_, err := ParseCloudEvent([]byte(`{"id":"x","data":{}}`))
	assert.Error(t, err)

	_, err = ParseCloudEvent([]byte(`not json`))
	assert.Error(t, err)
}
