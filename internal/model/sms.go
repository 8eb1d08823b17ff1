package model

import (
	"msgkit/internal/domain"
)

const MaxSmsTextLength = 2048

// Sms is plain text content for the SMS channel.
type Sms struct {
	Text string `json:"text" validate:"required,max=2048"`
}

func NewSms(text string) *Sms {
	return &Sms{Text: text}
}

func (s *Sms) WithText(text string) *Sms {
	s.Text = text
	return s
}

func (*Sms) Channel() domain.MessageChannel { return domain.ChannelSMS }

func (s *Sms) Validate() error {
	return domain.Join(checkFields("Sms", s)...)
}

func (s *Sms) ToMap() (*Map, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	m := newMap()
	m.Set("text", s.Text)
	return prune(m), nil
}

func SmsFromMap(data map[string]any) (*Sms, error) {
	s := NewSms(stringField(data, "text"))
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}
