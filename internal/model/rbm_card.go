package model

import (
	"fmt"

	"msgkit/internal/domain"
)

// RbmCardStandalone is a single rich card. Horizontal cards need a thumbnail
// alignment, a title and media without a height; vertical cards need media
// with a height and no alignment.
type RbmCardStandalone struct {
	Orientation             domain.CardOrientation    `json:"orientation" validate:"required,oneof=HORIZONTAL VERTICAL"`
	ThumbnailImageAlignment domain.ThumbnailAlignment `json:"thumbnailImageAlignment,omitempty" validate:"omitempty,oneof=LEFT RIGHT"`
	CardContent             *RbmCardContent           `json:"cardContent" validate:"-"`
	Suggestions             *Actions                  `json:"suggestions,omitempty" validate:"-"`
}

// NewRbmCardStandalone creates a vertical card around content.
func NewRbmCardStandalone(content *RbmCardContent) *RbmCardStandalone {
	return &RbmCardStandalone{Orientation: domain.OrientationVertical, CardContent: content}
}

func (r *RbmCardStandalone) WithOrientation(o domain.CardOrientation) *RbmCardStandalone {
	r.Orientation = o
	return r
}

// WithAlignment sets the thumbnail alignment; "" clears it.
func (r *RbmCardStandalone) WithAlignment(a domain.ThumbnailAlignment) *RbmCardStandalone {
	r.ThumbnailImageAlignment = a
	return r
}

func (r *RbmCardStandalone) WithCardContent(content *RbmCardContent) *RbmCardStandalone {
	r.CardContent = content
	return r
}

func (r *RbmCardStandalone) WithActions(actions *Actions) *RbmCardStandalone {
	r.Suggestions = actions
	return r
}

func (r *RbmCardStandalone) WithAction(a *RbmAction) error {
	return pushAction(&r.Suggestions, a, false)
}

func (*RbmCardStandalone) Channel() domain.MessageChannel { return domain.ChannelRBM }

func (r *RbmCardStandalone) horizontal() bool {
	return r.Orientation == domain.OrientationHorizontal
}

func (r *RbmCardStandalone) Validate() error {
	const object = "RbmCardStandalone"
	errs := checkFields(object, r)
	if r.CardContent == nil {
		errs = append(errs, missingField(object, "cardContent"))
		return domain.Join(errs...)
	}

	hasAlignment := r.ThumbnailImageAlignment != ""
	if r.horizontal() != hasAlignment {
		errs = append(errs, invalidCombination(object,
			fmt.Sprintf("orientation %s must %shave a thumbnail image alignment", r.Orientation, notIf(!r.horizontal())),
			"thumbnailImageAlignment"))
	}
	if r.CardContent.Media != nil && r.CardContent.MediaHasHeight() == r.horizontal() {
		errs = append(errs, invalidCombination(object,
			fmt.Sprintf("orientation %s must %shave card media with a height", r.Orientation, notIf(r.horizontal())),
			"cardContent.media.height"))
	}
	if r.horizontal() && !r.CardContent.HasTitle() {
		errs = append(errs, invalidCombination(object,
			fmt.Sprintf("orientation %s must have a title", r.Orientation), "cardContent.title"))
	}
	if err := r.CardContent.Validate(); err != nil {
		errs = append(errs, domain.Within(err, "cardContent"))
	}
	if err := r.Suggestions.Validate(); err != nil {
		errs = append(errs, domain.Within(err, "suggestions"))
	}
	return domain.Join(errs...)
}

func notIf(b bool) string {
	if b {
		return "not "
	}
	return ""
}

func (r *RbmCardStandalone) ToMap() (*Map, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	content, err := r.CardContent.ToMap()
	if err != nil {
		return nil, domain.Within(err, "cardContent")
	}
	suggestions, err := r.Suggestions.toWire()
	if err != nil {
		return nil, domain.Within(err, "suggestions")
	}
	m := newMap()
	m.Set("orientation", string(r.Orientation))
	m.Set("thumbnailImageAlignment", string(r.ThumbnailImageAlignment))
	m.Set("cardContent", content)
	m.Set("suggestions", suggestions)
	return prune(m), nil
}

func RbmCardStandaloneFromMap(data map[string]any) (*RbmCardStandalone, error) {
	const object = "RbmCardStandalone"
	r := &RbmCardStandalone{
		Orientation:             domain.CardOrientation(stringField(data, "orientation")),
		ThumbnailImageAlignment: domain.ThumbnailAlignment(stringField(data, "thumbnailImageAlignment")),
	}
	if r.Orientation == "" {
		r.Orientation = domain.OrientationVertical
	} else if !r.Orientation.Valid() {
		return nil, enumError(object, "orientation", string(r.Orientation))
	}
	if r.ThumbnailImageAlignment != "" && !r.ThumbnailImageAlignment.Valid() {
		return nil, enumError(object, "thumbnailImageAlignment", string(r.ThumbnailImageAlignment))
	}

	obj, ok, err := objectField(object, data, "cardContent")
	if err != nil {
		return nil, err
	}
	if ok {
		if r.CardContent, err = RbmCardContentFromMap(obj); err != nil {
			return nil, domain.Within(err, "cardContent")
		}
	}
	raw, err := listField(object, data, "suggestions")
	if err != nil {
		return nil, err
	}
	if r.Suggestions, err = actionsFromList(object, "suggestions", raw, false); err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}
