package model

import (
	"fmt"

	"msgkit/internal/domain"
)

// Content is the payload of one channel attempt. The built-in variants carry
// their channel tag; custom content may return "" and rely on an explicit
// channel on the list item.
type Content interface {
	Serializable
	Channel() domain.MessageChannel
}

// ResolveChannel returns the channel content is sent over.
func ResolveChannel(c Content) (domain.MessageChannel, error) {
	if c == nil {
		return "", domain.NewValidationError(domain.KindIndeterminateChannel, "MultiChannelListItem",
			"no content to resolve a channel from", "content")
	}
	ch := c.Channel()
	if !ch.Valid() {
		return "", domain.NewValidationError(domain.KindIndeterminateChannel, "MultiChannelListItem",
			fmt.Sprintf("cannot determine channel for content of type %T", c), "channel")
	}
	return ch, nil
}

// ContentFromMap rebuilds content for a known channel. RBM content is told
// apart by its distinguishing key: cardContents, cardContent, media, then text.
func ContentFromMap(channel domain.MessageChannel, data map[string]any) (Content, error) {
	var (
		c   Content
		err error
	)
	switch channel {
	case domain.ChannelSMS:
		c, err = SmsFromMap(data)
	case domain.ChannelMMS:
		c, err = MmsFromMap(data)
	case domain.ChannelRBM:
		switch {
		case data["cardContents"] != nil:
			c, err = RbmCardCarouselFromMap(data)
		case data["cardContent"] != nil:
			c, err = RbmCardStandaloneFromMap(data)
		case data["media"] != nil:
			c, err = RbmMediaFromMap(data)
		default:
			c, err = RbmTextFromMap(data)
		}
	default:
		return nil, domain.NewValidationError(domain.KindIndeterminateChannel, "MultiChannelListItem",
			fmt.Sprintf("unknown channel %q", channel), "channel")
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}
