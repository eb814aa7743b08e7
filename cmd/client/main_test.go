package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddress(t *testing.T) {
	addr, err := address(nil)
	require.NoError(t, err)
	assert.Equal(t, "localhost:5000", addr)

	addr, err = address([]string{"cargo.example", "6001"})
	require.NoError(t, err)
	assert.Equal(t, "cargo.example:6001", addr)

	_, err = address([]string{"h", "port"})
	assert.ErrorContains(t, err, "invalid port")
}

func TestPrinterHighlightsEvents(t *testing.T) {
	var out bytes.Buffer
	p := newPrinter(&out)
	p.event.EnableColor()
	p.ok.DisableColor()

	require.NoError(t, p.copyLines(strings.NewReader("OK pong\nEVENT {\"when\":1}\n")))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "OK pong", lines[0])
	assert.Contains(t, lines[1], "\x1b[")
	assert.Contains(t, lines[1], `EVENT {"when":1}`)
}

func TestSendLinesSkipsBlanks(t *testing.T) {
	var conn bytes.Buffer
	require.NoError(t, sendLines(strings.NewReader("PING\n\n  LIST_ITEMS  \n"), &conn))
	assert.Equal(t, "PING\nLIST_ITEMS\n", conn.String())
}
