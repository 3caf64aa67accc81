package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/odvcencio/termmarkup/pkg/errors"
)

func TestFrameMessagesBackgroundFirst(t *testing.T) {
	msgs := Frame{Background: "██\n", Foreground: "ab\n"}.Messages()
	assert.Equal(t, "B██\n", string(msgs[0]))
	assert.Equal(t, "Fab\n", string(msgs[1]))
}

func TestSplitMessage(t *testing.T) {
	marker, payload, err := splitMessage([]byte("F<b>x</b>\n"))
	require.NoError(t, err)
	assert.Equal(t, MarkerForeground, marker)
	assert.Equal(t, "<b>x</b>\n", payload)

	marker, payload, err = splitMessage([]byte("B"))
	require.NoError(t, err)
	assert.Equal(t, MarkerBackground, marker)
	assert.Empty(t, payload)

	_, _, err = splitMessage([]byte("Xjunk"))
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidInput))
}
