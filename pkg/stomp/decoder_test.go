package stomp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func headerMap(f *Frame) map[string]string {
	m := make(map[string]string, len(f.Headers))
	for _, h := range f.Headers {
		m[h.Name] = h.Value
	}
	return m
}

func TestDecodeConnectNoBody(t *testing.T) {
	d := NewDecoder()
	f, err := d.Decode([]byte("CONNECT\nlogin:guest\npasscode:pw\n\n\x00"))
	require.NoError(t, err)
	require.NotNil(t, f)

	assert.Equal(t, "CONNECT", f.Command)
	assert.Equal(t, map[string]string{"login": "guest", "passcode": "pw"}, headerMap(f))
	assert.Empty(t, f.Body)
}

func TestDecodeContentLengthBody(t *testing.T) {
	d := NewDecoder()
	f, err := d.Decode([]byte("SEND\ndestination:q\ncontent-length:5\n\nhello\x00"))
	require.NoError(t, err)
	assert.Equal(t, "SEND", f.Command)
	assert.Equal(t, "hello", string(f.Body))
}

func TestDecodeContentLengthBodyWithEmbeddedNUL(t *testing.T) {
	body := []byte("he\x00lo")
	chunk := append([]byte("SEND\ndestination:q\ncontent-length:5\n\n"), body...)
	chunk = append(chunk, 0)

	d := NewDecoder()
	f, err := d.Decode(chunk)
	require.NoError(t, err)
	assert.Equal(t, body, f.Body)
}

func TestDecodeNulTerminatedBodyStopsAtFirstNUL(t *testing.T) {
	d := NewDecoder()
	f, err := d.Decode([]byte("SEND\ndestination:q\n\nhel\x00lo\x00"))
	require.NoError(t, err)
	assert.Equal(t, "hel", string(f.Body))

	// The remaining "lo\x00" is buffered and begins a new, invalid frame.
	_, err = d.Decode(nil)
	assert.ErrorIs(t, err, ErrInvalidCommand)
}

func TestDecodeIncompleteThenComplete(t *testing.T) {
	d := NewDecoder()
	_, err := d.Decode([]byte("CONN"))
	assert.ErrorIs(t, err, ErrIncomplete)

	f, err := d.Decode([]byte("ECT\n\n\x00"))
	require.NoError(t, err)
	assert.Equal(t, "CONNECT", f.Command)
	assert.Empty(t, f.Headers)
	assert.Empty(t, f.Body)
}

func TestDecodeRejectsCRLF(t *testing.T) {
	d := NewDecoder()
	_, err := d.Decode([]byte("\r\nCONNECT\n\n\x00"))
	require.Error(t, err)

	var eolErr *InvalidEndOfLineError
	require.ErrorAs(t, err, &eolErr)
	assert.Equal(t, "1.0", eolErr.Version)
	assert.Equal(t, byte('\r'), eolErr.Byte)
}

func TestDecodeRejectsTwoCarriageReturns(t *testing.T) {
	d := NewDecoder()
	_, err := d.Decode([]byte("\r\rCONNECT\n\n\x00"))
	assert.ErrorIs(t, err, ErrTwoCarriageReturns)
}

func TestDecodeRejectsBareCarriageReturnInHeaders(t *testing.T) {
	d := NewDecoder()
	_, err := d.Decode([]byte("SEND\ndestination:q\rfoo:bar\n\n\x00"))
	assert.ErrorIs(t, err, ErrBadCarriageReturns)
}

func TestDecodeSilentlyConsumesLeadingNewlines(t *testing.T) {
	d := NewDecoder()
	f, err := d.Decode([]byte("\n\n\nCONNECT\n\n\x00"))
	require.NoError(t, err)
	assert.Equal(t, "CONNECT", f.Command)
}

func TestDecodeInvalidFirstByte(t *testing.T) {
	d := NewDecoder()
	_, err := d.Decode([]byte("ZORP\n\n\x00"))
	assert.ErrorIs(t, err, ErrInvalidCommand)
}

func TestDecodeDisambiguatesConnectVsConnected(t *testing.T) {
	d := NewDecoder()
	f, err := d.Decode([]byte("CONNECTED\nversion:1.0\n\n\x00"))
	require.NoError(t, err)
	assert.Equal(t, "CONNECTED", f.Command)
	assert.Equal(t, map[string]string{"version": "1.0"}, headerMap(f))
}

func TestDecodeDisambiguatesCommitVsConnect(t *testing.T) {
	d := NewDecoder()
	f, err := d.Decode([]byte("COMMIT\ntransaction:tx1\n\n\x00"))
	require.NoError(t, err)
	assert.Equal(t, "COMMIT", f.Command)
}

func TestDecodeDisambiguatesSendStompSubscribe(t *testing.T) {
	for _, cmd := range []string{"SEND", "STOMP", "SUBSCRIBE"} {
		d := NewDecoder()
		f, err := d.Decode([]byte(cmd + "\n\n\x00"))
		require.NoError(t, err, cmd)
		assert.Equal(t, cmd, f.Command)
	}
}

func TestDecodeHeaderValueLeadingWhitespaceTrimmed(t *testing.T) {
	d := NewDecoder()
	f, err := d.Decode([]byte("SEND\ndestination:  \t q\n\n\x00"))
	require.NoError(t, err)
	assert.Equal(t, "q", mustHeader(t, f, "destination"))
}

func mustHeader(t *testing.T, f *Frame, name string) string {
	t.Helper()
	v, ok := f.Get(name)
	require.True(t, ok, "missing header %q", name)
	return v
}

func TestDecodeResetsStateBetweenFrames(t *testing.T) {
	d := NewDecoder()
	_, err := d.Decode([]byte("CONNECT\n\n\x00"))
	require.NoError(t, err)

	f, err := d.Decode([]byte("SEND\ndestination:q\n\n\x00"))
	require.NoError(t, err)
	assert.Equal(t, "SEND", f.Command)
	assert.Len(t, f.Headers, 1)
}

func TestDecodeByteAtATimeChunking(t *testing.T) {
	raw := []byte("SEND\ndestination:q\ncontent-length:5\n\nhello\x00")
	d := NewDecoder()

	var frame *Frame
	var err error
	for i := 0; i < len(raw); i++ {
		frame, err = d.Decode(raw[i : i+1])
		if err == nil {
			break
		}
		if err != ErrIncomplete {
			t.Fatalf("unexpected error at byte %d: %v", i, err)
		}
	}

	require.NoError(t, err)
	require.NotNil(t, frame)
	assert.Equal(t, "SEND", frame.Command)
	assert.Equal(t, "hello", string(frame.Body))
}

func TestDecodeKFramesThenIncomplete(t *testing.T) {
	raw := []byte("CONNECT\n\n\x00SEND\ndestination:q\n\n\x00RECEIPT\nreceipt-id:1\n\n\x00DISCON")

	d := NewDecoder()
	var frames []*Frame
	remaining := raw
	for {
		// Feed in arbitrary small chunks to exercise fragmentation.
		chunkSize := 3
		var chunk []byte
		if len(remaining) == 0 {
			chunk = nil
		} else if len(remaining) < chunkSize {
			chunk = remaining
			remaining = nil
		} else {
			chunk = remaining[:chunkSize]
			remaining = remaining[chunkSize:]
		}

		f, err := d.Decode(chunk)
		if err == nil {
			frames = append(frames, f)
			continue
		}
		if err == ErrIncomplete {
			if len(remaining) == 0 {
				break
			}
			continue
		}
		t.Fatalf("unexpected error: %v", err)
	}

	require.Len(t, frames, 3)
	assert.Equal(t, "CONNECT", frames[0].Command)
	assert.Equal(t, "SEND", frames[1].Command)
	assert.Equal(t, "RECEIPT", frames[2].Command)
}

func TestRoundTripEncodeDecode(t *testing.T) {
	original := &Frame{
		Command: "MESSAGE",
		Headers: []Header{{Name: "destination", Value: "q"}, {Name: "message-id", Value: "42"}},
		Body:    []byte("payload"),
	}

	encoded := Encode(original)

	// Feed it in three arbitrary chunks to prove chunking-independence.
	third := len(encoded) / 3
	d := NewDecoder()
	var decoded *Frame
	var err error
	for _, chunk := range [][]byte{encoded[:third], encoded[third : 2*third], encoded[2*third:]} {
		decoded, err = d.Decode(chunk)
		if err != nil && err != ErrIncomplete {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	require.NotNil(t, decoded)
	assert.Equal(t, original.Command, decoded.Command)
	assert.Equal(t, original.Body, decoded.Body)
	assert.Equal(t, "q", mustHeader(t, decoded, "destination"))
}

func TestFrameReceiptHeader(t *testing.T) {
	f := &Frame{Headers: []Header{{Name: "receipt", Value: "r-1"}}}
	v, ok := f.Receipt()
	assert.True(t, ok)
	assert.Equal(t, "r-1", v)
}

func TestDecodeGrowsBufferForLargeFrame(t *testing.T) {
	body := make([]byte, 4096)
	for i := range body {
		body[i] = byte('a' + i%26)
	}

	f := &Frame{Command: "SEND", Headers: []Header{{Name: "destination", Value: "q"}}, Body: body}
	encoded := Encode(f)

	d := NewDecoder()
	decoded, err := d.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, body, decoded.Body)
}
