package model

import (
	"msgkit/internal/domain"
)

// RbmCardContent is one rich card: at least a title, a description or media.
type RbmCardContent struct {
	Title       string        `json:"title,omitempty"`
	Description string        `json:"description,omitempty"`
	Media       *RbmMediaFile `json:"media,omitempty" validate:"-"`
	Suggestions *Actions      `json:"suggestions,omitempty" validate:"-"`
}

func NewRbmCardContent() *RbmCardContent {
	return &RbmCardContent{}
}

func (c *RbmCardContent) WithTitle(title string) *RbmCardContent {
	c.Title = title
	return c
}

func (c *RbmCardContent) WithDescription(description string) *RbmCardContent {
	c.Description = description
	return c
}

func (c *RbmCardContent) WithMedia(media *RbmMediaFile) *RbmCardContent {
	c.Media = media
	return c
}

func (c *RbmCardContent) WithActions(actions *Actions) *RbmCardContent {
	c.Suggestions = actions
	return c
}

// WithAction appends a card suggestion, creating the list on first use.
func (c *RbmCardContent) WithAction(a *RbmAction) error {
	return pushAction(&c.Suggestions, a, true)
}

func (c *RbmCardContent) HasTitle() bool { return c.Title != "" }

func (c *RbmCardContent) MediaHasHeight() bool { return c.Media.HasHeight() }

func (c *RbmCardContent) Validate() error {
	var errs []error
	if c.Title == "" && c.Description == "" && c.Media == nil {
		errs = append(errs, domain.NewValidationError(domain.KindMissingRequiredField, "RbmCardContent",
			"must have at least a title, description, or media", "title", "description", "media"))
	}
	if c.Media != nil {
		if err := c.Media.Validate(); err != nil {
			errs = append(errs, domain.Within(err, "media"))
		}
	}
	if err := c.Suggestions.Validate(); err != nil {
		errs = append(errs, domain.Within(err, "suggestions"))
	}
	return domain.Join(errs...)
}

func (c *RbmCardContent) ToMap() (*Map, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	m := newMap()
	m.Set("title", c.Title)
	m.Set("description", c.Description)
	if c.Media != nil {
		media, err := c.Media.ToMap()
		if err != nil {
			return nil, domain.Within(err, "media")
		}
		m.Set("media", media)
	}
	suggestions, err := c.Suggestions.toWire()
	if err != nil {
		return nil, domain.Within(err, "suggestions")
	}
	m.Set("suggestions", suggestions)
	return prune(m), nil
}

func RbmCardContentFromMap(data map[string]any) (*RbmCardContent, error) {
	c := &RbmCardContent{
		Title:       stringField(data, "title"),
		Description: stringField(data, "description"),
	}
	obj, ok, err := objectField("RbmCardContent", data, "media")
	if err != nil {
		return nil, err
	}
	if ok {
		if c.Media, err = RbmMediaFileFromMap(obj); err != nil {
			return nil, domain.Within(err, "media")
		}
	}
	raw, err := listField("RbmCardContent", data, "suggestions")
	if err != nil {
		return nil, err
	}
	if c.Suggestions, err = actionsFromList("RbmCardContent", "suggestions", raw, true); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
