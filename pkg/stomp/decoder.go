package stomp

import "strconv"

type state int

const (
	stateExpectCommand state = iota
	stateExpectHeaders
	stateExpectBody
)

func (s state) String() string {
	switch s {
	case stateExpectCommand:
		return "ExpectCommand"
	case stateExpectHeaders:
		return "ExpectHeaders"
	case stateExpectBody:
		return "ExpectBody"
	default:
		return "Unknown"
	}
}

const defaultBufferCapacity = 1024

// noContentLength is the sentinel stored in contentLength when the
// header was absent: the body is then terminated by the first NUL byte
// instead of a declared byte count.
const noContentLength = -1

// commandsByFirstByte lists, for each dispatchable first byte, the
// candidate command words in decreasing length order. Decreasing order
// matters only where one candidate is a textual prefix of another (the
// 'C' group: CONNECTED/CONNECT) so the longer candidate is tried, and
// ruled in or out, before the shorter one that it contains.
var commandsByFirstByte = map[byte][]string{
	'A': {"ABORT", "ACK"},
	'B': {"BEGIN"},
	'C': {"CONNECTED", "CONNECT", "COMMIT"},
	'D': {"DISCONNECT"},
	'E': {"ERROR"},
	'M': {"MESSAGE"},
	'R': {"RECEIPT"},
	'S': {"SUBSCRIBE", "STOMP", "SEND"},
	'U': {"UNSUBSCRIBE"},
}

// Decoder incrementally parses wire frames (command, headers, body) out
// of a byte stream that may be delivered in arbitrarily small chunks.
// A Decoder is single-threaded: callers must not invoke Decode
// concurrently on the same instance (spec.md §5).
type Decoder struct {
	buf  []byte
	pos  int // read cursor: buf[pos:data] is the unconsumed tail
	data int // end of valid, unconsumed data

	st      state
	command string
	headers []Header

	lineStart     int  // start offset of the header line currently being scanned
	nameEnd       int  // offset of ':' once seen on the current line
	valueStart    int  // start offset of the (possibly trimmed) value
	inHeaderName  bool // scanning the name portion of the current line
	trimLeadingWS bool // trimming leading SP/HTAB from the value

	contentLength int // noContentLength if the header was absent
	bodyStart     int
	nulScan       int // how far the NUL-scan has progressed, for resumability
}

// NewDecoder returns a Decoder ready to parse frames starting at
// ExpectCommand.
func NewDecoder() *Decoder {
	d := &Decoder{buf: make([]byte, defaultBufferCapacity)}
	d.reset()
	return d
}

func (d *Decoder) reset() {
	d.st = stateExpectCommand
	d.command = ""
	d.headers = nil
	d.lineStart = d.pos
	d.inHeaderName = true
	d.trimLeadingWS = false
	d.contentLength = noContentLength
	d.bodyStart = 0
	d.nulScan = 0
}

// Phase reports the decoder's current parse state, for test observability.
func (d *Decoder) Phase() string {
	return d.st.String()
}

// HeaderTrimState reports whether the decoder is currently trimming
// leading whitespace from a header value, for test observability.
func (d *Decoder) HeaderTrimState() bool {
	return d.trimLeadingWS
}

// Decode appends chunk to the working buffer and attempts to produce one
// complete frame. It returns (frame, nil) on success, (nil, ErrIncomplete)
// if more bytes are needed, or (nil, err) for a malformed framing. State
// is preserved across calls in every case except success, after which
// the decoder is reset to parse the next frame (spec.md Invariant FD-2).
func (d *Decoder) Decode(chunk []byte) (*Frame, error) {
	d.append(chunk)

	for {
		switch d.st {
		case stateExpectCommand:
			done, err := d.skipLeadingEOL()
			if err != nil {
				return nil, err
			}
			if !done {
				return nil, ErrIncomplete
			}

			cmd, consumed, err := d.dispatchCommand()
			if err != nil {
				return nil, err
			}
			d.command = cmd
			d.pos += consumed
			d.st = stateExpectHeaders
			d.lineStart = d.pos
			d.inHeaderName = true
			d.trimLeadingWS = false

		case stateExpectHeaders:
			done, err := d.parseHeaders()
			if err != nil {
				return nil, err
			}
			if !done {
				return nil, ErrIncomplete
			}

		case stateExpectBody:
			frame, done, err := d.parseBody()
			if err != nil {
				return nil, err
			}
			if !done {
				return nil, ErrIncomplete
			}
			return frame, nil
		}
	}
}

// append grows the working buffer if needed and copies chunk onto the
// end of the valid region (spec.md §4.2 Buffer growth: initial capacity
// 1024, grow when currentDataEnd+incoming >= capacity).
func (d *Decoder) append(chunk []byte) {
	need := d.data + len(chunk)
	if need >= len(d.buf) {
		newCap := len(d.buf) * 2
		if newCap < need {
			newCap = need
		}
		grown := make([]byte, newCap)
		copy(grown, d.buf[:d.data])
		d.buf = grown
	}
	copy(d.buf[d.data:], chunk)
	d.data += len(chunk)
}

// skipLeadingEOL consumes leading end-of-line bytes so that pos lands on
// the first byte of the command line, tolerating a trailing '\n' left
// over from a previous frame. A lone '\n' is always accepted; '\r' is
// rejected because this decoder implements version 1.0 framing only,
// where CRLF line endings are not supported.
func (d *Decoder) skipLeadingEOL() (done bool, err error) {
	for d.pos < d.data {
		switch d.buf[d.pos] {
		case '\n':
			d.pos++
		case '\r':
			if d.pos+1 >= d.data {
				return false, nil
			}
			next := d.buf[d.pos+1]
			if next == '\r' {
				return false, ErrTwoCarriageReturns
			}
			return false, &InvalidEndOfLineError{Version: "1.0", Byte: '\r'}
		default:
			return true, nil
		}
	}
	return false, nil
}

// dispatchCommand identifies the command word starting at d.pos without
// consuming it, returning the matched word and the number of bytes it
// (plus its terminating '\n') occupies.
func (d *Decoder) dispatchCommand() (cmd string, consumed int, err error) {
	first := d.buf[d.pos]
	candidates, ok := commandsByFirstByte[first]
	if !ok {
		return "", 0, ErrInvalidCommand
	}

	avail := d.data - d.pos
	anyPending := false

	for _, candidate := range candidates {
		n := len(candidate)
		cmpLen := n
		if avail < cmpLen {
			cmpLen = avail
		}
		if !prefixEqual(d.buf[d.pos:d.pos+cmpLen], candidate[:cmpLen]) {
			continue
		}
		if avail < n+1 {
			anyPending = true
			continue
		}
		term := d.buf[d.pos+n]
		if term != '\n' {
			return "", 0, &InvalidEndOfLineError{Version: "1.0", Byte: term}
		}
		return candidate, n + 1, nil
	}

	if anyPending {
		return "", 0, ErrIncomplete
	}
	return "", 0, ErrInvalidCommand
}

func prefixEqual(b []byte, s string) bool {
	for i := range b {
		if b[i] != s[i] {
			return false
		}
	}
	return true
}

func (d *Decoder) addHeader(name, value string) {
	d.headers = append(d.headers, Header{Name: name, Value: value})
	if name == contentLengthHeader {
		if n, err := strconv.Atoi(value); err == nil && n >= 0 {
			d.contentLength = n
		}
	}
}

// parseHeaders scans byte-by-byte from d.pos, capturing NAME:VALUE pairs
// until a blank line ends the headers block (spec.md §4.2 ExpectHeaders).
// A bare '\r' inside a header name or value is not the version-1.0
// CRLF-negotiation case InvalidEndOfLineError covers (that only applies
// at the very start of a frame); here it can only be a malformed line,
// so it is rejected outright via ErrBadCarriageReturns.
func (d *Decoder) parseHeaders() (done bool, err error) {
	for d.pos < d.data {
		b := d.buf[d.pos]

		if b == '\r' {
			return false, ErrBadCarriageReturns
		}

		if d.inHeaderName {
			if b == ':' {
				d.nameEnd = d.pos
				d.valueStart = d.pos + 1
				d.inHeaderName = false
				d.trimLeadingWS = true
				d.pos++
				continue
			}
			if b == '\n' {
				if d.pos == d.lineStart {
					// Blank line: headers block ends.
					d.pos++
					d.bodyStart = d.pos
					d.nulScan = d.pos
					d.st = stateExpectBody
					return true, nil
				}
				// A line with no ':' before its newline: treat the
				// whole line as a header name with an empty value.
				d.addHeader(string(d.buf[d.lineStart:d.pos]), "")
				d.pos++
				d.lineStart = d.pos
				d.inHeaderName = true
				continue
			}
			d.pos++
			continue
		}

		// In value mode.
		if d.trimLeadingWS && (b == ' ' || b == '\t') {
			d.pos++
			d.valueStart = d.pos
			continue
		}
		d.trimLeadingWS = false

		if b == '\n' {
			name := string(d.buf[d.lineStart:d.nameEnd])
			value := string(d.buf[d.valueStart:d.pos])
			d.addHeader(name, value)
			d.pos++
			d.lineStart = d.pos
			d.inHeaderName = true
			continue
		}
		d.pos++
	}
	return false, nil
}

// parseBody consumes the body according to the declared content-length,
// or (when absent) up to the first NUL byte, then emits the frame and
// resets the decoder to parse the next one (spec.md §4.2 ExpectBody).
func (d *Decoder) parseBody() (*Frame, bool, error) {
	var body []byte

	if d.contentLength != noContentLength {
		need := d.contentLength + 1 // body bytes plus the terminating NUL
		if d.data-d.bodyStart < need {
			return nil, false, nil
		}
		body = append([]byte(nil), d.buf[d.bodyStart:d.bodyStart+d.contentLength]...)
		d.pos = d.bodyStart + d.contentLength + 1 // skip body and NUL
	} else {
		idx := -1
		for i := d.nulScan; i < d.data; i++ {
			if d.buf[i] == 0 {
				idx = i
				break
			}
			d.nulScan = i + 1
		}
		if idx < 0 {
			return nil, false, nil
		}
		body = append([]byte(nil), d.buf[d.bodyStart:idx]...)
		d.pos = idx + 1
	}

	if d.pos < d.data && d.buf[d.pos] == '\n' {
		d.pos++
	}

	frame := &Frame{Command: d.command, Headers: d.headers, Body: body}
	d.compact()
	return frame, true, nil
}

// compact shifts the unconsumed tail to offset 0 and resets parse state
// for the next frame (spec.md §4.2 Termination and compaction).
func (d *Decoder) compact() {
	remaining := d.data - d.pos
	copy(d.buf, d.buf[d.pos:d.data])
	d.pos = 0
	d.data = remaining
	d.reset()
}
