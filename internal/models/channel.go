package models

import (
	"fmt"
	"strconv"
	"strings"
)

// ChannelRef identifies a Telegram channel either by numeric chat id,
// by public username, or both. The persisted encoding is "id|username"
// when both parts are known, otherwise whichever part is present.
type ChannelRef struct {
	ID       int64
	Username string
}

func (c ChannelRef) IsZero() bool {
	return c.ID == 0 && c.Username == ""
}

// Encode renders the reference in the stored form.
func (c ChannelRef) Encode() string {
	switch {
	case c.ID != 0 && c.Username != "":
		return fmt.Sprintf("%d|%s", c.ID, c.Username)
	case c.ID != 0:
		return strconv.FormatInt(c.ID, 10)
	case c.Username != "":
		return "@" + c.Username
	default:
		return ""
	}
}

// Display returns the form shown to users: @username when available.
func (c ChannelRef) Display() string {
	if c.Username != "" {
		return "@" + c.Username
	}
	if c.ID != 0 {
		return strconv.FormatInt(c.ID, 10)
	}
	return ""
}

// ParseChannelRef accepts the stored encoding as well as user-supplied
// forms (@name, t.me links, bare usernames, numeric ids).
func ParseChannelRef(raw string) ChannelRef {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ChannelRef{}
	}
	if id, name, ok := strings.Cut(raw, "|"); ok {
		ref := ChannelRef{Username: strings.TrimPrefix(name, "@")}
		if parsed, err := strconv.ParseInt(id, 10, 64); err == nil {
			ref.ID = parsed
		}
		return ref
	}
	raw = strings.TrimPrefix(raw, "https://t.me/")
	raw = strings.TrimPrefix(raw, "t.me/")
	raw = strings.TrimPrefix(raw, "@")
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return ChannelRef{ID: id}
	}
	return ChannelRef{Username: raw}
}
