package model

import (
	"msgkit/internal/domain"
)

// RbmText is RBM text with optional suggested actions.
type RbmText struct {
	Text        string   `json:"text" validate:"required"`
	Suggestions *Actions `json:"suggestions,omitempty" validate:"-"`
}

func NewRbmText(text string) *RbmText {
	return &RbmText{Text: text}
}

func (r *RbmText) WithText(text string) *RbmText {
	r.Text = text
	return r
}

func (r *RbmText) WithActions(actions *Actions) *RbmText {
	r.Suggestions = actions
	return r
}

// WithAction appends a suggestion, creating the list on first use.
func (r *RbmText) WithAction(a *RbmAction) error {
	return pushAction(&r.Suggestions, a, false)
}

func (*RbmText) Channel() domain.MessageChannel { return domain.ChannelRBM }

func (r *RbmText) Validate() error {
	errs := checkFields("RbmText", r)
	if err := r.Suggestions.Validate(); err != nil {
		errs = append(errs, domain.Within(err, "suggestions"))
	}
	return domain.Join(errs...)
}

func (r *RbmText) ToMap() (*Map, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	suggestions, err := r.Suggestions.toWire()
	if err != nil {
		return nil, domain.Within(err, "suggestions")
	}
	m := newMap()
	m.Set("text", r.Text)
	m.Set("suggestions", suggestions)
	return prune(m), nil
}

func RbmTextFromMap(data map[string]any) (*RbmText, error) {
	r := NewRbmText(stringField(data, "text"))
	raw, err := listField("RbmText", data, "suggestions")
	if err != nil {
		return nil, err
	}
	if r.Suggestions, err = actionsFromList("RbmText", "suggestions", raw, false); err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}
