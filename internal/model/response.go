package model

import (
	"msgkit/internal/domain"
)

// Response is the envelope the messaging platform returns for a
// multi-channel request.
type Response struct {
	Links  []Link          `json:"links,omitempty"`
	Data   *ResponseData   `json:"data,omitempty"`
	Errors []ResponseError `json:"errors,omitempty"`
}

type Link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method,omitempty"`
}

// ResponseData echoes the accepted request along with its platform id.
type ResponseData struct {
	ID          string          `json:"id"`
	Time        string          `json:"time,omitempty"`
	Direction   string          `json:"direction,omitempty"`
	To          string          `json:"to"`
	ChannelList *ChannelList    `json:"-"`
	Tag         string          `json:"tag,omitempty"`
	Priority    domain.Priority `json:"priority,omitempty"`
	Expiration  string          `json:"expiration,omitempty"`
}

type ResponseError struct {
	Type        string         `json:"type"`
	Description string         `json:"description"`
	Source      map[string]any `json:"source,omitempty"`
}

// OK reports whether the platform accepted the request.
func (r *Response) OK() bool {
	return len(r.Errors) == 0 && r.Data != nil
}

// ResponseFromMap parses the envelope. Echoed channel-list items are rebuilt
// with ListItemFromMap using each item's channel; unknown keys are ignored.
func ResponseFromMap(data map[string]any) (*Response, error) {
	const object = "MultiChannelMessageResponse"
	resp := &Response{}

	links, err := listField(object, data, "links")
	if err != nil {
		return nil, err
	}
	for _, raw := range links {
		if l, ok := raw.(map[string]any); ok {
			resp.Links = append(resp.Links, Link{
				Href:   stringField(l, "href"),
				Rel:    stringField(l, "rel"),
				Method: stringField(l, "method"),
			})
		}
	}

	errs, err := listField(object, data, "errors")
	if err != nil {
		return nil, err
	}
	for _, raw := range errs {
		e, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		re := ResponseError{Type: stringField(e, "type"), Description: stringField(e, "description")}
		if src, ok := e["source"].(map[string]any); ok {
			re.Source = src
		}
		resp.Errors = append(resp.Errors, re)
	}

	obj, ok, err := objectField(object, data, "data")
	if err != nil {
		return nil, err
	}
	if ok {
		d := &ResponseData{
			ID:         stringField(obj, "id"),
			Time:       stringField(obj, "time"),
			Direction:  stringField(obj, "direction"),
			To:         stringField(obj, "to"),
			Tag:        stringField(obj, "tag"),
			Priority:   domain.Priority(stringField(obj, "priority")),
			Expiration: stringField(obj, "expiration"),
		}
		items, err := listField(object, obj, "channelList")
		if err != nil {
			return nil, domain.Within(err, "data")
		}
		if d.ChannelList, err = channelListFromList(items); err != nil {
			return nil, domain.Within(err, "data.channelList")
		}
		resp.Data = d
	}
	return resp, nil
}
