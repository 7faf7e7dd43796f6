package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNoArgs(t *testing.T) {
	_, err := Parse(nil)
	require.EqualError(t, err, "missing required arg message (-m/--message)")
}

func TestParseUnsupportedArg(t *testing.T) {
	_, err := Parse([]string{"--not-a-real-thing"})
	require.EqualError(t, err, "invalid arg '--not-a-real-thing'")
}

func TestParseMessageShortFlag(t *testing.T) {
	opts, err := Parse([]string{"-m", "hello from waysay"})
	require.NoError(t, err)
	assert.Equal(t, "hello from waysay", opts.Message)
	assert.Equal(t, "error", opts.MessageType)
}

func TestParseMessageLongFlag(t *testing.T) {
	opts, err := Parse([]string{"--message", "hello from waysay"})
	require.NoError(t, err)
	assert.Equal(t, "hello from waysay", opts.Message)
}

func TestParseButtons(t *testing.T) {
	opts, err := Parse([]string{
		"-m", "Do it?",
		"-b", "Yes", "echo did",
		"--button-no-terminal", "No", "echo not",
	})
	require.NoError(t, err)
	require.Len(t, opts.Buttons, 2)
	assert.Equal(t, Button{Label: "Yes", Command: "echo did"}, opts.Buttons[0])
	assert.Equal(t, Button{Label: "No", Command: "echo not"}, opts.Buttons[1])
}

func TestParseButtonMissingText(t *testing.T) {
	_, err := Parse([]string{"-m", "x", "-b"})
	require.EqualError(t, err, "button missing text")
}

func TestParseButtonMissingAction(t *testing.T) {
	_, err := Parse([]string{"-m", "x", "-b", "Yes"})
	require.EqualError(t, err, "button missing action")
}

func TestParseTypeAndFlags(t *testing.T) {
	opts, err := Parse([]string{"-t", "warning", "-m", "careful", "-l", "-v", "--keep-open"})
	require.NoError(t, err)
	assert.Equal(t, "warning", opts.MessageType)
	assert.True(t, opts.DetailedMessage)
	assert.True(t, opts.Verbose)
	assert.Equal(t, ExitNever, opts.ExitPolicy)
}

func TestParseMissingTypeValue(t *testing.T) {
	_, err := Parse([]string{"-m", "x", "-t"})
	require.EqualError(t, err, "missing required arg type (-t/--type)")
}
