package chat

import "strings"

// LineFramer rebuilds newline-terminated lines from text fragments of
// arbitrary size. Only complete lines are returned; a trailing partial line is
// kept until the fragment that terminates it arrives.
type LineFramer struct {
	buf strings.Builder
}

// Push appends text to the buffer and returns every line it completes, without
// the terminating newline, in order.
func (f *LineFramer) Push(text string) []string {
	if text == "" {
		return nil
	}
	if !strings.Contains(text, "\n") {
		f.buf.WriteString(text)
		return nil
	}

	f.buf.WriteString(text)
	pieces := strings.Split(f.buf.String(), "\n")

	rest := pieces[len(pieces)-1]
	f.buf.Reset()
	f.buf.WriteString(rest)

	return pieces[:len(pieces)-1]
}

// Pending returns the buffered partial line.
func (f *LineFramer) Pending() string {
	return f.buf.String()
}

// Close ends the stream. An unterminated trailing line is not a valid frame
// and is discarded; its text is returned for logging.
func (f *LineFramer) Close() string {
	rest := f.buf.String()
	f.buf.Reset()
	return rest
}
