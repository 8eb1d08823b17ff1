package domain

// MessageChannel is the transport a channel-list item is sent over.
type MessageChannel string

const (
	ChannelRBM MessageChannel = "RBM"
	ChannelSMS MessageChannel = "SMS"
	ChannelMMS MessageChannel = "MMS"
)

func (c MessageChannel) Valid() bool {
	switch c {
	case ChannelRBM, ChannelSMS, ChannelMMS:
		return true
	}
	return false
}

// Priority controls how the platform queues a request.
type Priority string

const (
	PriorityDefault Priority = "default"
	PriorityHigh    Priority = "high"
)

func (p Priority) Valid() bool {
	return p == PriorityDefault || p == PriorityHigh
}

// ActionType tags the kind of an RBM suggested action.
type ActionType string

const (
	ActionReply               ActionType = "REPLY"
	ActionDialPhone           ActionType = "DIAL_PHONE"
	ActionShowLocation        ActionType = "SHOW_LOCATION"
	ActionCreateCalendarEvent ActionType = "CREATE_CALENDAR_EVENT"
	ActionOpenURL             ActionType = "OPEN_URL"
	ActionRequestLocation     ActionType = "REQUEST_LOCATION"
)

func (t ActionType) Valid() bool {
	switch t {
	case ActionReply, ActionDialPhone, ActionShowLocation,
		ActionCreateCalendarEvent, ActionOpenURL, ActionRequestLocation:
		return true
	}
	return false
}

// MediaHeight is the display height class of RBM card media.
type MediaHeight string

const (
	HeightShort  MediaHeight = "SHORT"
	HeightMedium MediaHeight = "MEDIUM"
	HeightTall   MediaHeight = "TALL"
)

func (h MediaHeight) Valid() bool {
	return h == HeightShort || h == HeightMedium || h == HeightTall
}

// CardOrientation is the layout of a standalone rich card.
type CardOrientation string

const (
	OrientationHorizontal CardOrientation = "HORIZONTAL"
	OrientationVertical   CardOrientation = "VERTICAL"
)

func (o CardOrientation) Valid() bool {
	return o == OrientationHorizontal || o == OrientationVertical
}

// ThumbnailAlignment places the image of a horizontal card.
type ThumbnailAlignment string

const (
	AlignmentLeft  ThumbnailAlignment = "LEFT"
	AlignmentRight ThumbnailAlignment = "RIGHT"
)

func (a ThumbnailAlignment) Valid() bool {
	return a == AlignmentLeft || a == AlignmentRight
}

// CardWidth is the width class of every card in a carousel.
type CardWidth string

const (
	CardWidthSmall  CardWidth = "SMALL"
	CardWidthMedium CardWidth = "MEDIUM"
)

func (w CardWidth) Valid() bool {
	return w == CardWidthSmall || w == CardWidthMedium
}
