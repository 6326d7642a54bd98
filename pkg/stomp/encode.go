package stomp

import "strconv"

// Encode serializes f back into wire bytes. The body is always followed
// by a NUL; a content-length header is added when the body is non-empty
// and f carries none, so such a frame decodes via the content-length
// path. An empty body decodes via the NUL-scan path. It is primarily a
// test helper (spec.md §8
// "Round-trip" testable property) but is exported for callers that want
// to re-frame a Frame they built programmatically.
func Encode(f *Frame) []byte {
	out := make([]byte, 0, 64+len(f.Body))
	out = append(out, f.Command...)
	out = append(out, '\n')

	hasContentLength := false
	for _, h := range f.Headers {
		if h.Name == contentLengthHeader {
			hasContentLength = true
		}
		out = append(out, h.Name...)
		out = append(out, ':')
		out = append(out, h.Value...)
		out = append(out, '\n')
	}
	if !hasContentLength && len(f.Body) > 0 {
		out = append(out, contentLengthHeader...)
		out = append(out, ':')
		out = append(out, strconv.Itoa(len(f.Body))...)
		out = append(out, '\n')
	}

	out = append(out, '\n')
	out = append(out, f.Body...)
	out = append(out, 0)
	return out
}
