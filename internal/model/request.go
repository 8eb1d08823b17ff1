package model

import (
	"encoding/json"
	"fmt"

	"msgkit/internal/domain"
)

// MaxTagLength bounds the correlation tag echoed in delivery callbacks.
const MaxTagLength = 1024

// Request is a multi-channel message request, the root object sent on the wire.
type Request struct {
	To          string          `json:"to" validate:"required"`
	ChannelList *ChannelList    `json:"channelList" validate:"-"`
	Tag         string          `json:"tag,omitempty" validate:"max=1024"`
	Priority    domain.Priority `json:"priority,omitempty" validate:"omitempty,oneof=default high"`
	Expiration  string          `json:"expiration,omitempty" validate:"iso8601"`
}

// NewRequest creates a request for to with an empty channel list.
func NewRequest(to string) *Request {
	list, _ := NewChannelList()
	return &Request{To: to, ChannelList: list}
}

// Basic creates a request with a single channel attempt.
func Basic(to, from, applicationID string, content Content) (*Request, error) {
	r := NewRequest(to)
	if err := r.WithContent(from, applicationID, content); err != nil {
		return nil, err
	}
	return r, nil
}

// RBM creates a request with a single RBM attempt.
func RBM(to, from, applicationID string, content Content) (*Request, error) {
	r := NewRequest(to)
	if err := r.WithRBM(from, applicationID, content); err != nil {
		return nil, err
	}
	return r, nil
}

// SMS creates a request with a single SMS attempt.
func SMS(to, from, applicationID string, content *Sms) (*Request, error) {
	return Basic(to, from, applicationID, content)
}

// MMS creates a request with a single MMS attempt.
func MMS(to, from, applicationID string, content *Mms) (*Request, error) {
	return Basic(to, from, applicationID, content)
}

// WithItem appends a channel attempt, failing with CapacityExceeded past four.
func (r *Request) WithItem(item *ListItem) error {
	if r.ChannelList == nil {
		r.ChannelList, _ = NewChannelList()
	}
	return r.ChannelList.Push(item)
}

// WithContent appends a channel attempt whose channel is resolved from content.
func (r *Request) WithContent(from, applicationID string, content Content) error {
	item, err := NewListItem(from, applicationID, content)
	if err != nil {
		return err
	}
	return r.WithItem(item)
}

// WithRBM appends an RBM attempt; content of another channel is rejected.
func (r *Request) WithRBM(from, applicationID string, content Content) error {
	return r.withChannel(domain.ChannelRBM, from, applicationID, content)
}

func (r *Request) WithSMS(from, applicationID string, content *Sms) error {
	return r.withChannel(domain.ChannelSMS, from, applicationID, content)
}

func (r *Request) WithMMS(from, applicationID string, content *Mms) error {
	return r.withChannel(domain.ChannelMMS, from, applicationID, content)
}

func (r *Request) withChannel(want domain.MessageChannel, from, applicationID string, content Content) error {
	item, err := NewListItem(from, applicationID, content)
	if err != nil {
		return err
	}
	if item.Channel() != want {
		return invalidCombination("MultiChannelMessageRequest",
			fmt.Sprintf("%s content cannot be sent as %s", item.Channel(), want), "channel")
	}
	return r.WithItem(item)
}

func (r *Request) WithTag(tag string) *Request {
	r.Tag = tag
	return r
}

func (r *Request) WithPriority(p domain.Priority) *Request {
	r.Priority = p
	return r
}

// WithExpiration sets the ISO 8601 time after which the platform stops trying.
func (r *Request) WithExpiration(expiration string) *Request {
	r.Expiration = expiration
	return r
}

// Channels returns the channel of every attempt in order.
func (r *Request) Channels() []domain.MessageChannel {
	return r.ChannelList.Channels()
}

func (r *Request) Validate() error {
	errs := checkFields("MultiChannelMessageRequest", r)
	if err := r.ChannelList.Validate(); err != nil {
		errs = append(errs, domain.Within(err, "channelList"))
	}
	return domain.Join(errs...)
}

func (r *Request) ToMap() (*Map, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	items, err := r.ChannelList.toWire()
	if err != nil {
		return nil, domain.Within(err, "channelList")
	}
	m := newMap()
	m.Set("to", r.To)
	m.Set("channelList", items)
	m.Set("tag", r.Tag)
	m.Set("priority", string(r.Priority))
	m.Set("expiration", r.Expiration)
	return prune(m), nil
}

// MarshalJSON writes the validated wire form.
func (r *Request) MarshalJSON() ([]byte, error) {
	m, err := r.ToMap()
	if err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

func RequestFromMap(data map[string]any) (*Request, error) {
	const object = "MultiChannelMessageRequest"
	r := &Request{
		To:         stringField(data, "to"),
		Tag:        stringField(data, "tag"),
		Priority:   domain.Priority(stringField(data, "priority")),
		Expiration: stringField(data, "expiration"),
	}
	if r.Priority != "" && !r.Priority.Valid() {
		return nil, enumError(object, "priority", string(r.Priority))
	}
	raw, err := listField(object, data, "channelList")
	if err != nil {
		return nil, err
	}
	if r.ChannelList, err = channelListFromList(raw); err != nil {
		return nil, domain.Within(err, "channelList")
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}
