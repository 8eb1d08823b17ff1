package model

import (
	"msgkit/internal/domain"
)

// MaxChannelListItems is the capacity of a request's channel list.
const MaxChannelListItems = 4

// ChannelList is the ordered set of channel attempts of a request. The
// platform tries items in order, so order is preserved verbatim.
type ChannelList struct {
	BoundedList[*ListItem]
}

func NewChannelList(items ...*ListItem) (*ChannelList, error) {
	l := &ChannelList{BoundedList: BoundedList[*ListItem]{name: "MultiChannelList", capacity: MaxChannelListItems}}
	for _, item := range items {
		if err := l.Push(item); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Channels lists the channel of every item in order.
func (l *ChannelList) Channels() []domain.MessageChannel {
	if l == nil {
		return nil
	}
	out := make([]domain.MessageChannel, 0, len(l.items))
	for _, item := range l.items {
		out = append(out, item.Channel())
	}
	return out
}

func (l *ChannelList) Validate() error {
	if l == nil || l.IsEmpty() {
		return domain.NewValidationError(domain.KindEmptyCollection, "MultiChannelList", "cannot be empty")
	}
	var errs []error
	for i, item := range l.items {
		if item == nil {
			errs = append(errs, domain.Within(missingField("MultiChannelListItem", "item"), "[%d]", i))
			continue
		}
		if err := item.Validate(); err != nil {
			errs = append(errs, domain.Within(err, "[%d]", i))
		}
	}
	return domain.Join(errs...)
}

func (l *ChannelList) toWire() ([]any, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	out := make([]any, 0, len(l.items))
	for i, item := range l.items {
		m, err := item.ToMap()
		if err != nil {
			return nil, domain.Within(err, "[%d]", i)
		}
		out = append(out, m)
	}
	return out, nil
}

func channelListFromList(raw []any) (*ChannelList, error) {
	l, _ := NewChannelList()
	for i, entry := range raw {
		data, ok := entry.(map[string]any)
		if !ok {
			return nil, domain.Within(shapeError("MultiChannelList", "channelList", "an object", entry), "[%d]", i)
		}
		item, err := ListItemFromMap(data)
		if err != nil {
			return nil, domain.Within(err, "[%d]", i)
		}
		if err := l.Push(item); err != nil {
			return nil, err
		}
	}
	return l, nil
}
