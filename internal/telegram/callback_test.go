package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCallbackWithArg(t *testing.T) {
	cb, err := parseCallback("join:42")
	require.NoError(t, err)
	assert.Equal(t, TagJoin, cb.Tag)
	assert.Equal(t, int64(42), cb.Arg)
}

func TestParseCallbackBareTag(t *testing.T) {
	cb, err := parseCallback("balance")
	require.NoError(t, err)
	assert.Equal(t, TagBalance, cb.Tag)
	assert.Zero(t, cb.Arg)
}

func TestParseCallbackRejectsGarbage(t *testing.T) {
	_, err := parseCallback("")
	assert.Error(t, err)

	_, err = parseCallback("draw:abc")
	assert.Error(t, err)
}

func TestEncodeParseRoundTrip(t *testing.T) {
	data := encodeCallback(TagDraw, 17)
	cb, err := parseCallback(data)
	require.NoError(t, err)
	assert.Equal(t, Callback{Tag: TagDraw, Arg: 17}, cb)
}

func TestParsePointsInput(t *testing.T) {
	userID, delta, err := parsePointsInput("123456789:100")
	require.NoError(t, err)
	assert.Equal(t, int64(123456789), userID)
	assert.Equal(t, 100, delta)

	userID, delta, err = parsePointsInput("  42 : -7 ")
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
	assert.Equal(t, -7, delta)

	_, _, err = parsePointsInput("no separator")
	assert.Error(t, err)

	_, _, err = parsePointsInput("abc:10")
	assert.Error(t, err)

	_, _, err = parsePointsInput("10:xyz")
	assert.Error(t, err)
}
