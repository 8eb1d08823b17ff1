package model

import (
	"fmt"

	"msgkit/internal/domain"
)

// ListItem is one channel attempt: sender identity plus content. The channel
// is resolved once, when content is attached.
type ListItem struct {
	From          string
	ApplicationID string

	channel domain.MessageChannel
	content Content
}

// NewListItem creates an item and resolves its channel from content.
func NewListItem(from, applicationID string, content Content) (*ListItem, error) {
	item := &ListItem{From: from, ApplicationID: applicationID}
	if err := item.SetContent(content); err != nil {
		return nil, err
	}
	return item, nil
}

// NewListItemWithChannel creates an item for content whose channel cannot be
// derived from its type. Content that carries its own channel keeps it.
func NewListItemWithChannel(from, applicationID string, channel domain.MessageChannel, content Content) *ListItem {
	if content != nil && content.Channel().Valid() {
		channel = content.Channel()
	}
	return &ListItem{From: from, ApplicationID: applicationID, channel: channel, content: content}
}

func (i *ListItem) WithFrom(from string) *ListItem {
	i.From = from
	return i
}

func (i *ListItem) WithApplicationID(applicationID string) *ListItem {
	i.ApplicationID = applicationID
	return i
}

// WithChannel sets the channel explicitly. It is only meaningful for custom
// content; Validate rejects a channel that contradicts built-in content.
func (i *ListItem) WithChannel(channel domain.MessageChannel) *ListItem {
	i.channel = channel
	return i
}

// SetContent attaches content and resolves the channel from it. Content that
// carries no channel keeps a channel set earlier with WithChannel, or fails
// with IndeterminateChannel when there is none.
func (i *ListItem) SetContent(c Content) error {
	ch, err := ResolveChannel(c)
	if err != nil {
		if c == nil || i.channel == "" {
			return err
		}
		ch = i.channel
	}
	i.content = c
	i.channel = ch
	return nil
}

func (i *ListItem) Channel() domain.MessageChannel { return i.channel }

func (i *ListItem) Content() Content { return i.content }

// Validate names every missing field in a single finding.
func (i *ListItem) Validate() error {
	const object = "MultiChannelListItem"
	var missing []string
	if i.From == "" {
		missing = append(missing, "from")
	}
	if i.ApplicationID == "" {
		missing = append(missing, "applicationId")
	}
	if i.channel == "" {
		missing = append(missing, "channel")
	}
	if i.content == nil {
		missing = append(missing, "content")
	}

	var errs []error
	if len(missing) > 0 {
		errs = append(errs, missingField(object, missing...))
	}
	if i.channel != "" && !i.channel.Valid() {
		errs = append(errs, enumError(object, "channel", string(i.channel)))
	}
	if i.content != nil && i.channel != "" {
		if own := i.content.Channel(); own.Valid() && own != i.channel {
			errs = append(errs, invalidCombination(object,
				fmt.Sprintf("channel %s does not match %s content", i.channel, own), "channel"))
		}
	}
	if i.content != nil {
		if err := i.content.Validate(); err != nil {
			errs = append(errs, domain.Within(err, "content"))
		}
	}
	return domain.Join(errs...)
}

func (i *ListItem) ToMap() (*Map, error) {
	if err := i.Validate(); err != nil {
		return nil, err
	}
	content, err := i.content.ToMap()
	if err != nil {
		return nil, domain.Within(err, "content")
	}
	m := newMap()
	m.Set("from", i.From)
	m.Set("applicationId", i.ApplicationID)
	m.Set("channel", string(i.channel))
	m.Set("content", content)
	return prune(m), nil
}

// ListItemFromMap rebuilds an item, using its channel to pick the content variant.
func ListItemFromMap(data map[string]any) (*ListItem, error) {
	const object = "MultiChannelListItem"
	item := &ListItem{
		From:          stringField(data, "from"),
		ApplicationID: stringField(data, "applicationId"),
		channel:       domain.MessageChannel(stringField(data, "channel")),
	}
	obj, ok, err := objectField(object, data, "content")
	if err != nil {
		return nil, err
	}
	if ok {
		if item.content, err = ContentFromMap(item.channel, obj); err != nil {
			return nil, domain.Within(err, "content")
		}
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	return item, nil
}
