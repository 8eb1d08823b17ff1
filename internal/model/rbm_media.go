package model

import (
	"msgkit/internal/domain"
)

// RbmMedia is a single RBM media file with optional suggested actions.
// Standalone media never carries a height class.
type RbmMedia struct {
	Media       *RbmMediaFile `json:"media" validate:"-"`
	Suggestions *Actions      `json:"suggestions,omitempty" validate:"-"`
}

func NewRbmMedia(media *RbmMediaFile) *RbmMedia {
	return &RbmMedia{Media: media}
}

func (r *RbmMedia) WithActions(actions *Actions) *RbmMedia {
	r.Suggestions = actions
	return r
}

func (r *RbmMedia) WithAction(a *RbmAction) error {
	return pushAction(&r.Suggestions, a, false)
}

func (*RbmMedia) Channel() domain.MessageChannel { return domain.ChannelRBM }

func (r *RbmMedia) Validate() error {
	var errs []error
	switch {
	case r.Media == nil:
		errs = append(errs, missingField("RbmMedia", "media"))
	case r.Media.HasHeight():
		errs = append(errs, invalidCombination("RbmMedia", "standalone RBM media must not have a height", "media.height"))
	default:
		if err := r.Media.Validate(); err != nil {
			errs = append(errs, domain.Within(err, "media"))
		}
	}
	if err := r.Suggestions.Validate(); err != nil {
		errs = append(errs, domain.Within(err, "suggestions"))
	}
	return domain.Join(errs...)
}

func (r *RbmMedia) ToMap() (*Map, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	media, err := r.Media.ToMap()
	if err != nil {
		return nil, domain.Within(err, "media")
	}
	suggestions, err := r.Suggestions.toWire()
	if err != nil {
		return nil, domain.Within(err, "suggestions")
	}
	m := newMap()
	m.Set("media", media)
	m.Set("suggestions", suggestions)
	return prune(m), nil
}

func RbmMediaFromMap(data map[string]any) (*RbmMedia, error) {
	r := &RbmMedia{}
	obj, ok, err := objectField("RbmMedia", data, "media")
	if err != nil {
		return nil, err
	}
	if ok {
		if r.Media, err = RbmMediaFileFromMap(obj); err != nil {
			return nil, domain.Within(err, "media")
		}
	}
	raw, err := listField("RbmMedia", data, "suggestions")
	if err != nil {
		return nil, err
	}
	if r.Suggestions, err = actionsFromList("RbmMedia", "suggestions", raw, false); err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}
