package notification

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizePhone(t *testing.T) {
	tests := map[string]string{
		"+223 70 00-00-00": "+22370000000",
		" 70.00.00.00 ":    "70000000",
		"00+223":           "00223",
		"+":                "",
		"":                 "",
		"n/a":              "",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizePhone(in), in)
	}
}

func TestRecipient_Address(t *testing.T) {
	r := Recipient{Phone: "+223 70 00 00 00"}
	assert.Equal(t, "+22370000000", r.Address(ChannelSMS))
	assert.Equal(t, "+22370000000", r.Address(ChannelWhatsApp))
	assert.Empty(t, r.Address(ChannelEmail))
}

func TestBodies(t *testing.T) {
	msg := Message{Title: "Mission validée", Body: "Départ 8h"}
	assert.Equal(t, "Mission validée\nDépart 8h", SMSBody(msg))
	assert.Equal(t, "*Mission validée*\n\nDépart 8h", WhatsAppBody(msg))
	assert.Equal(t, "Départ 8h", WhatsAppBody(Message{Body: "Départ 8h"}))
	assert.Equal(t, "Mission validée", SMSBody(Message{Title: "Mission validée"}))
}

func TestDispatchResult(t *testing.T) {
	r := DispatchResult{
		Attempts: []Attempt{
			{Channel: ChannelSMS, Success: true},
			{Channel: ChannelWhatsApp, Error: "boom"},
		},
		Skipped: []Channel{ChannelEmail},
	}
	assert.True(t, r.AnySucceeded())
	assert.Equal(t, []Channel{ChannelSMS}, r.Succeeded())
	require.Len(t, r.Failed(), 1)
	assert.Equal(t, ChannelWhatsApp, r.Failed()[0].Channel)
	assert.True(t, r.WasSkipped(ChannelEmail))
	_, ok := r.Attempt(ChannelEmail)
	assert.False(t, ok)

	assert.False(t, DispatchResult{}.AnySucceeded())
}

func TestChannelDeliveryError(t *testing.T) {
	cause := errors.New("gateway down")
	err := error(NewChannelDeliveryError(ChannelSMS, "provider error", cause))
	require.ErrorIs(t, err, ErrChannelDelivery)
	require.ErrorIs(t, err, cause)

	var cde *ChannelDeliveryError
	require.ErrorAs(t, err, &cde)
	assert.Equal(t, ChannelSMS, cde.Channel)
	assert.Equal(t, "sms: provider error: gateway down", err.Error())
}
