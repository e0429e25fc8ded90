package export

import (
	"bufio"
	"strconv"
)

// textWriter accumulates a line-oriented format. The first write error is
// kept and later writes become no-ops.
type textWriter struct {
	w   *bufio.Writer
	buf []byte
	err error
}

func (t *textWriter) line(parts ...string) {
	if t.err != nil {
		return
	}
	t.buf = t.buf[:0]
	for i, p := range parts {
		if i > 0 {
			t.buf = append(t.buf, ' ')
		}
		t.buf = append(t.buf, p...)
	}
	t.buf = append(t.buf, '\n')
	_, t.err = t.w.Write(t.buf)
}

// floats writes a keyword followed by numbers in shortest round-trip form.
func (t *textWriter) floats(keyword string, vals ...float32) {
	if t.err != nil {
		return
	}
	t.buf = append(t.buf[:0], keyword...)
	for _, v := range vals {
		t.buf = append(t.buf, ' ')
		t.buf = strconv.AppendFloat(t.buf, float64(v), 'f', -1, 32)
	}
	t.buf = append(t.buf, '\n')
	_, t.err = t.w.Write(t.buf)
}

func (t *textWriter) flush() error {
	if t.err != nil {
		return t.err
	}
	return t.w.Flush()
}
