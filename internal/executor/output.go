package executor

import "bytes"

// truncationMarker is appended to a stream that hit its capture limit.
const truncationMarker = "\n[output truncated]"

// cappedBuffer keeps the first limit bytes written to it and discards the
// rest, so a chatty child cannot exhaust memory. Writes never fail; failing
// would make the child see EPIPE and change its behaviour.
type cappedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if b.limit <= 0 {
		return b.buf.Write(p)
	}
	room := b.limit - b.buf.Len()
	if room <= 0 {
		b.truncated = b.truncated || len(p) > 0
		return len(p), nil
	}
	if len(p) > room {
		b.buf.Write(p[:room])
		b.truncated = true
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *cappedBuffer) String() string {
	if b.truncated {
		return b.buf.String() + truncationMarker
	}
	return b.buf.String()
}
