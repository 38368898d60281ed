package chatstream

import (
	"bytes"
	"encoding/json"
)

// DefaultMaxRecordBytes bounds the bytes held while waiting for a record to
// become parseable.
const DefaultMaxRecordBytes = 1 << 20

// Decoder turns an arbitrarily fragmented byte stream of newline-delimited
// JSON records into events.
//
// Bytes are appended to an internal buffer. At every newline the buffered
// text up to that newline is parsed; on failure it is treated as an
// incomplete record and kept for the next newline. If the most recent line
// parses on its own, any unparseable prefix before it is dropped. Whatever
// is left when the input ends is handed to Flush.
type Decoder struct {
	buf      []byte
	scanFrom int
	maxBytes int
	events   []Event
	dropped  int
}

// NewDecoder returns a decoder holding at most maxBytes of unparsed input.
// A non-positive maxBytes disables the limit.
func NewDecoder(maxBytes int) *Decoder {
	return &Decoder{maxBytes: maxBytes}
}

// Feed appends p and decodes every record that became complete.
func (d *Decoder) Feed(p []byte) error {
	d.buf = append(d.buf, p...)
	for {
		idx := bytes.IndexByte(d.buf[d.scanFrom:], '\n')
		if idx < 0 {
			break
		}
		lineStart := d.scanFrom
		end := d.scanFrom + idx

		candidate := bytes.TrimSpace(d.buf[:end])
		if len(candidate) == 0 {
			d.consume(end + 1)
			continue
		}
		if ev, ok := parseRecord(candidate); ok {
			d.events = append(d.events, ev)
			d.consume(end + 1)
			continue
		}
		if lineStart > 0 {
			if ev, ok := parseRecord(bytes.TrimSpace(d.buf[lineStart:end])); ok {
				d.dropped++
				d.events = append(d.events, ev)
				d.consume(end + 1)
				continue
			}
		}
		d.scanFrom = end + 1
	}

	if d.maxBytes > 0 && len(d.buf) > d.maxBytes {
		return ErrRecordTooLarge
	}
	return nil
}

// Flush decodes whatever remains buffered once the input has ended. A trailing
// record without a newline is accepted; anything unparseable is discarded.
func (d *Decoder) Flush() {
	rest := bytes.TrimSpace(d.buf)
	d.buf = nil
	d.scanFrom = 0
	if len(rest) == 0 {
		return
	}
	if ev, ok := parseRecord(rest); ok {
		d.events = append(d.events, ev)
		return
	}
	if i := bytes.LastIndexByte(rest, '\n'); i >= 0 {
		if ev, ok := parseRecord(bytes.TrimSpace(rest[i+1:])); ok {
			d.dropped++
			d.events = append(d.events, ev)
			return
		}
	}
	d.dropped++
}

// Next pops the oldest decoded event.
func (d *Decoder) Next() (Event, bool) {
	if len(d.events) == 0 {
		return Event{}, false
	}
	ev := d.events[0]
	d.events = d.events[1:]
	return ev, true
}

// Buffered returns the number of unparsed bytes held.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Dropped returns how many unparseable fragments were discarded.
func (d *Decoder) Dropped() int {
	return d.dropped
}

func (d *Decoder) consume(n int) {
	d.buf = append(d.buf[:0], d.buf[n:]...)
	d.scanFrom = 0
}

func parseRecord(b []byte) (Event, bool) {
	var ev Event
	if err := json.Unmarshal(b, &ev); err != nil {
		return Event{}, false
	}
	if ev.Type == "" {
		return Event{}, false
	}
	return ev, true
}
