package cmdutil

import (
	"bytes"
	"io"
	"strings"
	"sync"
)

// lineWriter wraps an OutputLineHandler as an io.Writer.
// It buffers partial lines, calls the handler for each complete line and
// remembers the last few lines it saw.
type lineWriter struct {
	output  io.Writer
	handler OutputLineHandler
	buf     []byte
	tail    []string
	mu      sync.Mutex
}

func newLineWriter(output io.Writer, handler OutputLineHandler) *lineWriter {
	if output == nil {
		output = io.Discard
	}
	return &lineWriter{
		output:  output,
		handler: handler,
	}
}

func (lw *lineWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	if _, err := lw.output.Write(p); err != nil {
		return 0, err
	}

	lw.buf = append(lw.buf, p...)
	for {
		idx := bytes.IndexByte(lw.buf, '\n')
		if idx < 0 {
			break
		}
		line := string(lw.buf[:idx])
		lw.buf = lw.buf[idx+1:]
		lw.emit(line)
	}

	return len(p), nil
}

// Flush processes any remaining buffered data as a final line.
func (lw *lineWriter) Flush() {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	if len(lw.buf) > 0 {
		lw.emit(string(lw.buf))
		lw.buf = nil
	}
}

// Tail returns a copy of the last non-empty lines written.
func (lw *lineWriter) Tail() []string {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return append([]string(nil), lw.tail...)
}

// emit must be called with mu held.
func (lw *lineWriter) emit(line string) {
	line = strings.TrimRight(line, "\r")
	if strings.TrimSpace(line) != "" {
		lw.tail = append(lw.tail, line)
		if len(lw.tail) > stderrTailLines {
			lw.tail = lw.tail[len(lw.tail)-stderrTailLines:]
		}
	}
	if lw.handler != nil {
		lw.handler(line)
	}
}
