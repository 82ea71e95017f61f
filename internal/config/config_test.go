package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAdminIDs(t *testing.T) {
	assert.Equal(t, []int64{1, 2, 3}, parseAdminIDs("1,2,3"))
	assert.Equal(t, []int64{42}, parseAdminIDs(" 42 , junk , "))
	assert.Nil(t, parseAdminIDs(""))
}

func TestNormalizeChannel(t *testing.T) {
	assert.Equal(t, "mychannel", normalizeChannel("@mychannel"))
	assert.Equal(t, "mychannel", normalizeChannel("https://t.me/mychannel"))
	assert.Equal(t, "mychannel", normalizeChannel(" t.me/mychannel "))
	assert.Equal(t, "mychannel", normalizeChannel("mychannel"))
}
