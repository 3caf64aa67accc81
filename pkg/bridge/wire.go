package bridge

import (
	"strings"

	apperrors "github.com/odvcencio/termmarkup/pkg/errors"
)

// Every frame is two text messages: the background layer prefixed with
// MarkerBackground, then the foreground layer prefixed with MarkerForeground.
const (
	MarkerBackground = "B"
	MarkerForeground = "F"
)

// Frame is one encoded screen.
type Frame struct {
	Background string
	Foreground string
}

// Messages returns the two wire messages for f, background first.
func (f Frame) Messages() [2][]byte {
	return [2][]byte{
		[]byte(MarkerBackground + f.Background),
		[]byte(MarkerForeground + f.Foreground),
	}
}

// splitMessage separates the marker from the payload of one wire message.
func splitMessage(msg []byte) (marker, payload string, err error) {
	s := string(msg)
	switch {
	case strings.HasPrefix(s, MarkerBackground):
		return MarkerBackground, s[len(MarkerBackground):], nil
	case strings.HasPrefix(s, MarkerForeground):
		return MarkerForeground, s[len(MarkerForeground):], nil
	default:
		return "", "", apperrors.New(apperrors.ErrCodeInvalidInput, "frame message has no layer marker")
	}
}
