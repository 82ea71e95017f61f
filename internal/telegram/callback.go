package telegram

import (
	"fmt"
	"strconv"
	"strings"
)

// CallbackTag identifies a button press. Callback data is "tag" or
// "tag:arg"; the arg is a giveaway id or a winner count depending on the
// tag. Parsing happens here, at the transport boundary, so nothing past
// this file ever looks at the raw string.
type CallbackTag string

const (
	TagJoin         CallbackTag = "join"
	TagDraw         CallbackTag = "draw"
	TagToggle       CallbackTag = "toggle"
	TagParticipants CallbackTag = "participants"
	TagWinners      CallbackTag = "winners"

	TagSubscribed     CallbackTag = "subscribed"
	TagCreateGiveaway CallbackTag = "create_giveaway"
	TagLinkChannel    CallbackTag = "link_channel"
	TagUnlinkChannel  CallbackTag = "unlink_channel"
	TagAddCondition   CallbackTag = "add_condition"
	TagSkipCondition  CallbackTag = "skip_condition"
	TagPayPremium     CallbackTag = "pay_premium"
	TagPayStars       CallbackTag = "pay_stars"
	TagPayPoints      CallbackTag = "pay_points"
	TagDonateMenu     CallbackTag = "donate_menu"
	TagDonate         CallbackTag = "donate"
	TagBalance        CallbackTag = "balance"
	TagSupport        CallbackTag = "support"
	TagBackToMain     CallbackTag = "back_to_main"
	TagAdminMenu      CallbackTag = "admin_menu"
	TagAddPoints      CallbackTag = "add_points"
)

type Callback struct {
	Tag CallbackTag
	Arg int64
}

func encodeCallback(tag CallbackTag, arg int64) string {
	return fmt.Sprintf("%s:%d", tag, arg)
}

func parseCallback(data string) (Callback, error) {
	tag, arg, found := strings.Cut(data, ":")
	if tag == "" {
		return Callback{}, fmt.Errorf("empty callback data")
	}
	cb := Callback{Tag: CallbackTag(tag)}
	if found {
		n, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return Callback{}, fmt.Errorf("callback arg %q: %w", arg, err)
		}
		cb.Arg = n
	}
	return cb, nil
}
