package model

import (
	"msgkit/internal/domain"
)

// MaxCarouselCards is the capacity of a carousel's card list.
const MaxCarouselCards = 10

// RbmCardCarousel is a horizontally scrolling set of vertical cards. Every
// card must carry media with a height.
type RbmCardCarousel struct {
	CardWidth    domain.CardWidth              `json:"cardWidth" validate:"required,oneof=SMALL MEDIUM"`
	CardContents *BoundedList[*RbmCardContent] `json:"cardContents" validate:"-"`
	Suggestions  *Actions                      `json:"suggestions,omitempty" validate:"-"`
}

// NewRbmCardCarousel creates a carousel of small cards holding cards.
func NewRbmCardCarousel(cards ...*RbmCardContent) (*RbmCardCarousel, error) {
	r := &RbmCardCarousel{
		CardWidth:    domain.CardWidthSmall,
		CardContents: NewBoundedList[*RbmCardContent]("RbmCardCarousel", MaxCarouselCards),
	}
	for _, c := range cards {
		if err := r.Push(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *RbmCardCarousel) WithCardWidth(w domain.CardWidth) *RbmCardCarousel {
	r.CardWidth = w
	return r
}

func (r *RbmCardCarousel) WithActions(actions *Actions) *RbmCardCarousel {
	r.Suggestions = actions
	return r
}

func (r *RbmCardCarousel) WithAction(a *RbmAction) error {
	return pushAction(&r.Suggestions, a, false)
}

// Push appends a card, failing with CapacityExceeded past ten cards.
func (r *RbmCardCarousel) Push(card *RbmCardContent) error {
	if r.CardContents == nil {
		r.CardContents = NewBoundedList[*RbmCardContent]("RbmCardCarousel", MaxCarouselCards)
	}
	return r.CardContents.Push(card)
}

func (r *RbmCardCarousel) Count() int { return r.CardContents.Count() }
func (r *RbmCardCarousel) IsEmpty() bool { return r.CardContents.IsEmpty() }
func (r *RbmCardCarousel) IsFull() bool { return r.CardContents.IsFull() }

func (*RbmCardCarousel) Channel() domain.MessageChannel { return domain.ChannelRBM }

func (r *RbmCardCarousel) Validate() error {
	const object = "RbmCardCarousel"
	errs := checkFields(object, r)
	if r.IsEmpty() {
		errs = append(errs, domain.NewValidationError(domain.KindEmptyCollection, object,
			"cannot be empty", "cardContents"))
		return domain.Join(errs...)
	}
	for i, card := range r.CardContents.items {
		if card == nil {
			errs = append(errs, domain.Within(missingField("RbmCardContent", "cardContent"), "cardContents[%d]", i))
			continue
		}
		if !card.MediaHasHeight() {
			errs = append(errs, domain.Within(invalidCombination(object,
				"carousel cards must all have media with a height", "media.height"), "cardContents[%d]", i))
		}
		if err := card.Validate(); err != nil {
			errs = append(errs, domain.Within(err, "cardContents[%d]", i))
		}
	}
	if err := r.Suggestions.Validate(); err != nil {
		errs = append(errs, domain.Within(err, "suggestions"))
	}
	return domain.Join(errs...)
}

func (r *RbmCardCarousel) ToMap() (*Map, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	cards := make([]any, 0, r.Count())
	for i, card := range r.CardContents.items {
		m, err := card.ToMap()
		if err != nil {
			return nil, domain.Within(err, "cardContents[%d]", i)
		}
		cards = append(cards, m)
	}
	suggestions, err := r.Suggestions.toWire()
	if err != nil {
		return nil, domain.Within(err, "suggestions")
	}
	m := newMap()
	m.Set("cardWidth", string(r.CardWidth))
	m.Set("cardContents", cards)
	m.Set("suggestions", suggestions)
	return prune(m), nil
}

func RbmCardCarouselFromMap(data map[string]any) (*RbmCardCarousel, error) {
	const object = "RbmCardCarousel"
	r, _ := NewRbmCardCarousel()
	if w := domain.CardWidth(stringField(data, "cardWidth")); w != "" {
		if !w.Valid() {
			return nil, enumError(object, "cardWidth", string(w))
		}
		r.CardWidth = w
	}

	raw, err := listField(object, data, "cardContents")
	if err != nil {
		return nil, err
	}
	for i, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, domain.Within(shapeError(object, "cardContents", "an object", item), "cardContents[%d]", i)
		}
		card, err := RbmCardContentFromMap(obj)
		if err != nil {
			return nil, domain.Within(err, "cardContents[%d]", i)
		}
		if err := r.Push(card); err != nil {
			return nil, err
		}
	}

	rawActions, err := listField(object, data, "suggestions")
	if err != nil {
		return nil, err
	}
	if r.Suggestions, err = actionsFromList(object, "suggestions", rawActions, false); err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}
