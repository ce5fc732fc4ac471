package eeg

import "fmt"

// InvalidInputError reports a recording that cannot be analysed at all.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid recording: " + e.Reason
}

func invalidInput(format string, args ...interface{}) error {
	return &InvalidInputError{Reason: fmt.Sprintf(format, args...)}
}

// InvalidChannelLocationError reports a channel whose location is missing or
// unusable at the point where spatial interpolation needs it.
type InvalidChannelLocationError struct {
	Channel int // 1-based
	Reason  string
}

func (e *InvalidChannelLocationError) Error() string {
	return fmt.Sprintf("invalid location for channel %d: %s", e.Channel, e.Reason)
}
