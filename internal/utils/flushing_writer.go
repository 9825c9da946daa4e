package utils

import (
	"io"
	"sync"
)

type errorFlusher interface {
	Flush() error
}

type plainFlusher interface {
	Flush()
}

// FlushingWriter flushes a buffering writer after every write so streamed output
// shows up as it is produced.
type FlushingWriter struct {
	writer io.Writer
	flush  func() error
	mutex  sync.Mutex
}

// NewFlushingWriter wraps writers that buffer, such as bufio.Writer or http.Flusher
// implementations. Writers without a Flush method already write through and are
// returned unchanged, as is an existing FlushingWriter.
func NewFlushingWriter(writer io.Writer) io.Writer {
	switch target := writer.(type) {
	case nil:
		return nil
	case *FlushingWriter:
		return target
	case errorFlusher:
		return &FlushingWriter{writer: writer, flush: target.Flush}
	case plainFlusher:
		return &FlushingWriter{writer: writer, flush: func() error {
			target.Flush()
			return nil
		}}
	default:
		return writer
	}
}

// Write delegates to the underlying writer and then flushes it.
func (flushingWriter *FlushingWriter) Write(data []byte) (int, error) {
	flushingWriter.mutex.Lock()
	defer flushingWriter.mutex.Unlock()

	bytesWritten, writeError := flushingWriter.writer.Write(data)
	if writeError != nil {
		return bytesWritten, writeError
	}
	return bytesWritten, flushingWriter.flush()
}
