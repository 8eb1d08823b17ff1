package model

import (
	"strings"

	"msgkit/internal/domain"
)

// Mms is text and/or media content for the MMS channel.
type Mms struct {
	Text  string          `json:"text,omitempty" validate:"max=2048"`
	Media []*MmsMediaFile `json:"media,omitempty" validate:"-"`
}

// NewMms creates MMS content. A single URL is wrapped into a one-item media list.
func NewMms(text string, media ...string) *Mms {
	return (&Mms{Text: text}).SetMedia(media...)
}

func (m *Mms) WithText(text string) *Mms {
	m.Text = text
	return m
}

// SetMedia replaces the media list.
func (m *Mms) SetMedia(urls ...string) *Mms {
	m.Media = nil
	for _, u := range urls {
		m.Media = append(m.Media, NewMmsMediaFile(u))
	}
	return m
}

// WithMedia appends one media URL.
func (m *Mms) WithMedia(url string) *Mms {
	m.Media = append(m.Media, NewMmsMediaFile(url))
	return m
}

func (*Mms) Channel() domain.MessageChannel { return domain.ChannelMMS }

func (m *Mms) Validate() error {
	errs := checkFields("Mms", m)
	if strings.TrimSpace(m.Text) == "" && len(m.Media) == 0 {
		errs = append(errs, domain.NewValidationError(domain.KindMissingRequiredField, "Mms",
			"must have text, media, or both", "text", "media"))
	}
	for i, f := range m.Media {
		if f == nil {
			errs = append(errs, domain.Within(missingField("MmsMediaFile", "fileUrl"), "media[%d]", i))
			continue
		}
		if err := f.Validate(); err != nil {
			errs = append(errs, domain.Within(err, "media[%d]", i))
		}
	}
	return domain.Join(errs...)
}

func (m *Mms) ToMap() (*Map, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	media := make([]any, 0, len(m.Media))
	for _, f := range m.Media {
		media = append(media, f.FileURL)
	}
	out := newMap()
	out.Set("text", m.Text)
	out.Set("media", media)
	return prune(out), nil
}

// MmsFromMap accepts media as a single URL string, an array of URL strings,
// or an array of {"fileUrl": ...} objects.
func MmsFromMap(data map[string]any) (*Mms, error) {
	m := &Mms{Text: stringField(data, "text")}
	switch raw := data["media"].(type) {
	case nil:
	case string:
		m.SetMedia(raw)
	default:
		items, err := listField("Mms", data, "media")
		if err != nil {
			return nil, err
		}
		for i, item := range items {
			f, err := mmsMediaFromValue(item)
			if err != nil {
				return nil, domain.Within(err, "media[%d]", i)
			}
			m.Media = append(m.Media, f)
		}
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
