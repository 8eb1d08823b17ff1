package model

import (
	"msgkit/internal/domain"
)

// MaxActions is the capacity of every suggested-action list.
const MaxActions = 11

// Actions is a bounded list of suggested actions.
type Actions struct {
	BoundedList[*RbmAction]
}

// NewActions creates the action list attached to RBM message content.
func NewActions(actions ...*RbmAction) (*Actions, error) {
	return newActions("RbmActions", actions)
}

// NewCardActions creates the action list attached to a single rich card.
func NewCardActions(actions ...*RbmAction) (*Actions, error) {
	return newActions("RbmCardActions", actions)
}

func newActions(name string, actions []*RbmAction) (*Actions, error) {
	l := &Actions{BoundedList: BoundedList[*RbmAction]{name: name, capacity: MaxActions}}
	for _, a := range actions {
		if err := l.Push(a); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (l *Actions) WithReply(text string, postback any) error {
	return l.Push(NewReply(text, postback))
}

func (l *Actions) WithDialPhone(text string, postback any, phoneNumber string) error {
	return l.Push(NewDialPhone(text, postback, phoneNumber))
}

func (l *Actions) WithShowLocation(text string, postback any, latitude, longitude, label string) error {
	return l.Push(NewShowLocation(text, postback, latitude, longitude).WithLabel(label))
}

func (l *Actions) WithCreateCalendarEvent(text string, postback any, title, startTime, endTime, description string) error {
	return l.Push(NewCreateCalendarEvent(text, postback, title, startTime, endTime).WithDescription(description))
}

func (l *Actions) WithOpenURL(text string, postback any, url string) error {
	return l.Push(NewOpenURL(text, postback, url))
}

func (l *Actions) WithRequestLocation(text string, postback any) error {
	return l.Push(NewRequestLocation(text, postback))
}

func (l *Actions) Validate() error {
	if l == nil {
		return nil
	}
	var errs []error
	for i, a := range l.items {
		if a == nil {
			errs = append(errs, domain.Within(missingField("RbmAction", "action"), "[%d]", i))
			continue
		}
		if err := a.Validate(); err != nil {
			errs = append(errs, domain.Within(err, "[%d]", i))
		}
	}
	return domain.Join(errs...)
}

// toWire renders the actions as an array of maps; nil for a nil list.
func (l *Actions) toWire() ([]any, error) {
	if l == nil {
		return nil, nil
	}
	out := make([]any, 0, len(l.items))
	for i, a := range l.items {
		m, err := a.ToMap()
		if err != nil {
			return nil, domain.Within(err, "[%d]", i)
		}
		out = append(out, m)
	}
	return out, nil
}

// pushAction appends to *list, creating it on first use.
func pushAction(list **Actions, a *RbmAction, card bool) error {
	if *list == nil {
		var err error
		if card {
			*list, err = NewCardActions()
		} else {
			*list, err = NewActions()
		}
		if err != nil {
			return err
		}
	}
	return (*list).Push(a)
}

func actionsFromList(object, key string, raw []any, card bool) (*Actions, error) {
	if raw == nil {
		return nil, nil
	}
	var list *Actions
	if card {
		list, _ = NewCardActions()
	} else {
		list, _ = NewActions()
	}
	for i, item := range raw {
		data, ok := item.(map[string]any)
		if !ok {
			return nil, domain.Within(shapeError(object, key, "an object", item), "%s[%d]", key, i)
		}
		a, err := ActionFromMap(data)
		if err != nil {
			return nil, domain.Within(err, "%s[%d]", key, i)
		}
		if err := list.Push(a); err != nil {
			return nil, domain.Within(err, "%s", key)
		}
	}
	return list, nil
}
