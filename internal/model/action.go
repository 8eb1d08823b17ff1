package model

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"msgkit/internal/domain"
)

const (
	MaxActionTextLength       = 25
	MaxPostbackDataLength     = 2048
	MaxLocationLabelLength    = 100
	MaxEventTitleLength       = 100
	MaxEventDescriptionLength = 500
	MaxURLLength              = 2048
)

// RbmAction is one suggested action shown with RBM content. Type selects
// which of the kind-specific fields are required and written to the wire.
type RbmAction struct {
	Type         domain.ActionType `json:"type" validate:"required,oneof=REPLY DIAL_PHONE SHOW_LOCATION CREATE_CALENDAR_EVENT OPEN_URL REQUEST_LOCATION"`
	Text         string            `json:"text" validate:"required,max=25"`
	PostbackData string            `json:"postbackData" validate:"required,max=2048"`
	PhoneNumber  string            `json:"phoneNumber,omitempty" validate:"required_if=Type DIAL_PHONE"`
	Latitude     string            `json:"latitude,omitempty" validate:"required_if=Type SHOW_LOCATION"`
	Longitude    string            `json:"longitude,omitempty" validate:"required_if=Type SHOW_LOCATION"`
	Label        string            `json:"label,omitempty" validate:"max=100"`
	Title        string            `json:"title,omitempty" validate:"required_if=Type CREATE_CALENDAR_EVENT,max=100"`
	StartTime    string            `json:"startTime,omitempty" validate:"required_if=Type CREATE_CALENDAR_EVENT,iso8601"`
	EndTime      string            `json:"endTime,omitempty" validate:"required_if=Type CREATE_CALENDAR_EVENT,iso8601"`
	Description  string            `json:"description,omitempty" validate:"max=500"`
	URL          string            `json:"url,omitempty" validate:"required_if=Type OPEN_URL,max=2048"`

	postbackErr error
}

func newAction(t domain.ActionType, text string, postback any) *RbmAction {
	a := &RbmAction{Type: t, Text: text}
	return a.WithPostbackData(postback)
}

// NewReply suggests a canned reply.
func NewReply(text string, postback any) *RbmAction {
	return newAction(domain.ActionReply, text, postback)
}

// NewDialPhone suggests calling phoneNumber.
func NewDialPhone(text string, postback any, phoneNumber string) *RbmAction {
	a := newAction(domain.ActionDialPhone, text, postback)
	a.PhoneNumber = phoneNumber
	return a
}

// NewShowLocation suggests opening a map at the given coordinates.
func NewShowLocation(text string, postback any, latitude, longitude string) *RbmAction {
	a := newAction(domain.ActionShowLocation, text, postback)
	a.Latitude = latitude
	a.Longitude = longitude
	return a
}

// NewCreateCalendarEvent suggests adding an event; times are ISO 8601.
func NewCreateCalendarEvent(text string, postback any, title, startTime, endTime string) *RbmAction {
	a := newAction(domain.ActionCreateCalendarEvent, text, postback)
	a.Title = title
	a.StartTime = startTime
	a.EndTime = endTime
	return a
}

// NewOpenURL suggests opening url.
func NewOpenURL(text string, postback any, url string) *RbmAction {
	a := newAction(domain.ActionOpenURL, text, postback)
	a.URL = url
	return a
}

// NewRequestLocation asks the recipient to share their location.
func NewRequestLocation(text string, postback any) *RbmAction {
	return newAction(domain.ActionRequestLocation, text, postback)
}

func (a *RbmAction) WithText(text string) *RbmAction {
	a.Text = text
	return a
}

// WithPostbackData sets the postback payload. Strings and byte slices are
// used as-is; any other value is JSON-encoded and then base64-encoded, and
// the length limit applies to that encoded form.
func (a *RbmAction) WithPostbackData(postback any) *RbmAction {
	a.postbackErr = nil
	switch v := postback.(type) {
	case nil:
		a.PostbackData = ""
	case string:
		a.PostbackData = v
	case []byte:
		a.PostbackData = string(v)
	default:
		encoded, err := EncodePostback(v)
		if err != nil {
			a.postbackErr = err
			a.PostbackData = ""
			return a
		}
		a.PostbackData = encoded
	}
	return a
}

// EncodePostback is the base64(JSON) encoding used for structured postback data.
func EncodePostback(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode postback data: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func (a *RbmAction) WithPhoneNumber(phoneNumber string) *RbmAction {
	a.PhoneNumber = phoneNumber
	return a
}

func (a *RbmAction) WithLabel(label string) *RbmAction {
	a.Label = label
	return a
}

func (a *RbmAction) WithDescription(description string) *RbmAction {
	a.Description = description
	return a
}

func (a *RbmAction) WithURL(url string) *RbmAction {
	a.URL = url
	return a
}

func (a *RbmAction) Validate() error {
	errs := checkFields("RbmAction", a)
	if a.postbackErr != nil {
		errs = append(errs, invalidCombination("RbmAction", a.postbackErr.Error(), "postbackData"))
	}
	return domain.Join(errs...)
}

// ToMap writes the common fields followed by the fields of this action's kind only.
func (a *RbmAction) ToMap() (*Map, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	m := newMap()
	m.Set("type", string(a.Type))
	m.Set("text", a.Text)
	m.Set("postbackData", a.PostbackData)
	switch a.Type {
	case domain.ActionDialPhone:
		m.Set("phoneNumber", a.PhoneNumber)
	case domain.ActionShowLocation:
		m.Set("latitude", a.Latitude)
		m.Set("longitude", a.Longitude)
		m.Set("label", a.Label)
	case domain.ActionCreateCalendarEvent:
		m.Set("title", a.Title)
		m.Set("startTime", a.StartTime)
		m.Set("endTime", a.EndTime)
		m.Set("description", a.Description)
	case domain.ActionOpenURL:
		m.Set("url", a.URL)
	}
	return prune(m), nil
}

// ActionFromMap rebuilds an action. A postbackData object or array is encoded
// the same way WithPostbackData encodes structured values.
func ActionFromMap(data map[string]any) (*RbmAction, error) {
	t := domain.ActionType(stringField(data, "type"))
	if t == "" {
		return nil, missingField("RbmAction", "type")
	}
	if !t.Valid() {
		return nil, enumError("RbmAction", "type", string(t))
	}

	a := &RbmAction{Type: t, Text: stringField(data, "text")}
	switch raw := data["postbackData"].(type) {
	case map[string]any, []any:
		a.WithPostbackData(raw)
	default:
		a.PostbackData = stringField(data, "postbackData")
	}
	switch t {
	case domain.ActionDialPhone:
		a.PhoneNumber = stringField(data, "phoneNumber")
	case domain.ActionShowLocation:
		a.Latitude = stringField(data, "latitude")
		a.Longitude = stringField(data, "longitude")
		a.Label = stringField(data, "label")
	case domain.ActionCreateCalendarEvent:
		a.Title = stringField(data, "title")
		a.StartTime = stringField(data, "startTime")
		a.EndTime = stringField(data, "endTime")
		a.Description = stringField(data, "description")
	case domain.ActionOpenURL:
		a.URL = stringField(data, "url")
	}

	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}
