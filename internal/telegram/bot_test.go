package telegram

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OmarMosad/Roulette-Panda-Bot/internal/models"
)

func TestParseDonationPayloadRoundTrip(t *testing.T) {
	raw, err := json.Marshal(invoicePayload{
		Ref:    "d2c6a1de-8f60-4f8d-9e52-0c5b7f6e1a2b",
		Kind:   string(models.FeatureDonation),
		UserID: 42,
	})
	require.NoError(t, err)

	p, err := parseDonationPayload(string(raw))
	require.NoError(t, err)
	assert.Equal(t, int64(42), p.UserID)
	assert.Equal(t, string(models.FeatureDonation), p.Kind)
}

func TestParseDonationPayloadRejectsOtherKinds(t *testing.T) {
	raw, err := json.Marshal(invoicePayload{
		Ref:    "ref",
		Kind:   string(models.FeaturePremiumMonth),
		UserID: 42,
	})
	require.NoError(t, err)

	// A confirmation for any other paid feature must not land as a donation.
	_, err = parseDonationPayload(string(raw))
	assert.Error(t, err)
}

func TestParseDonationPayloadRejectsGarbage(t *testing.T) {
	_, err := parseDonationPayload("not json")
	assert.Error(t, err)

	_, err = parseDonationPayload("{}")
	assert.Error(t, err)
}

func TestSubscribeKeyboardWithUsername(t *testing.T) {
	markup := subscribeKeyboard(models.ChannelRef{Username: "mychannel"})

	require.Len(t, markup.InlineKeyboard, 2)
	url := markup.InlineKeyboard[0][0].URL
	require.NotNil(t, url)
	assert.Equal(t, "https://t.me/mychannel", *url)
	assert.NotNil(t, markup.InlineKeyboard[1][0].CallbackData)
}

func TestSubscribeKeyboardWithoutUsernameOmitsLink(t *testing.T) {
	// A private channel is known only by id; there is no t.me page to link.
	markup := subscribeKeyboard(models.ChannelRef{ID: -1001234567890})

	require.Len(t, markup.InlineKeyboard, 1)
	assert.Nil(t, markup.InlineKeyboard[0][0].URL)
	require.NotNil(t, markup.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, string(TagSubscribed), *markup.InlineKeyboard[0][0].CallbackData)
}
