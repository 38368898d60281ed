package chatstream

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(d *Decoder) []Event {
	var out []Event
	for {
		ev, ok := d.Next()
		if !ok {
			return out
		}
		out = append(out, ev)
	}
}

func TestDecoderWholeRecords(t *testing.T) {
	t.Parallel()

	d := NewDecoder(0)
	require.NoError(t, d.Feed([]byte("{\"type\":\"message\",\"data\":\"Hel\"}\n{\"type\":\"message\",\"data\":\"lo\"}\n{\"type\":\"messageEnd\"}\n")))

	events := collect(d)
	require.Len(t, events, 3)
	assert.Equal(t, EventMessage, events[0].Type)
	assert.Equal(t, "Hel", events[0].Text())
	assert.Equal(t, "lo", events[1].Text())
	assert.Equal(t, EventMessageEnd, events[2].Type)
	assert.Zero(t, d.Buffered())
}

func TestDecoderFragmentedChunks(t *testing.T) {
	t.Parallel()

	stream := "{\"type\":\"message\",\"data\":\"Hello, \"}\n{\"type\":\"message\",\"data\":\"world\"}\n"
	d := NewDecoder(0)
	var got []Event
	for i := 0; i < len(stream); i++ {
		require.NoError(t, d.Feed([]byte{stream[i]}))
		got = append(got, collect(d)...)
	}

	require.Len(t, got, 2)
	assert.Equal(t, "Hello, ", got[0].Text())
	assert.Equal(t, "world", got[1].Text())
}

func TestDecoderIncompleteRecordWaitsForMoreBytes(t *testing.T) {
	t.Parallel()

	d := NewDecoder(0)
	require.NoError(t, d.Feed([]byte(`{"type":"message","da`)))
	assert.Empty(t, collect(d))
	assert.Positive(t, d.Buffered())

	require.NoError(t, d.Feed([]byte("ta\":\"x\"}\n")))
	events := collect(d)
	require.Len(t, events, 1)
	assert.Equal(t, "x", events[0].Text())
}

func TestDecoderSkipsBlankLines(t *testing.T) {
	t.Parallel()

	d := NewDecoder(0)
	require.NoError(t, d.Feed([]byte("\n\n  \n{\"type\":\"messageEnd\"}\n")))
	events := collect(d)
	require.Len(t, events, 1)
	assert.Equal(t, EventMessageEnd, events[0].Type)
}

func TestDecoderDropsMalformedPrefixWhenNextLineParses(t *testing.T) {
	t.Parallel()

	d := NewDecoder(0)
	require.NoError(t, d.Feed([]byte("not json at all\n{\"type\":\"message\",\"data\":\"ok\"}\n")))
	events := collect(d)
	require.Len(t, events, 1)
	assert.Equal(t, "ok", events[0].Text())
	assert.Equal(t, 1, d.Dropped())
	assert.Zero(t, d.Buffered())
}

func TestDecoderLimit(t *testing.T) {
	t.Parallel()

	d := NewDecoder(16)
	err := d.Feed([]byte(strings.Repeat("x", 32)))
	require.ErrorIs(t, err, ErrRecordTooLarge)
}

func TestDecoderFlush(t *testing.T) {
	t.Parallel()

	t.Run("trailing record without newline", func(t *testing.T) {
		t.Parallel()
		d := NewDecoder(0)
		require.NoError(t, d.Feed([]byte(`{"type":"message","data":"tail"}`)))
		assert.Empty(t, collect(d))
		d.Flush()
		events := collect(d)
		require.Len(t, events, 1)
		assert.Equal(t, "tail", events[0].Text())
	})

	t.Run("garbage is discarded", func(t *testing.T) {
		t.Parallel()
		d := NewDecoder(0)
		require.NoError(t, d.Feed([]byte(`{"type":"mess`)))
		d.Flush()
		assert.Empty(t, collect(d))
		assert.Equal(t, 1, d.Dropped())
		assert.Zero(t, d.Buffered())
	})
}

func TestEventText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", Event{}.Text())
	assert.Equal(t, "boom", Event{Data: []byte(`"boom"`)}.Text())
	assert.Equal(t, `{"code":42}`, Event{Data: []byte(`{"code":42}`)}.Text())
}
