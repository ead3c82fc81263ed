package utils

import (
	"io"
	"sync"
)

type errorFlusher interface {
	Flush() error
}

type silentFlusher interface {
	Flush()
}

// FlushingWriter serializes writes and pushes every completed write through a buffered
// destination, so each report document reaches the CI log before the next step starts.
type FlushingWriter struct {
	mutex       sync.Mutex
	destination io.Writer
}

// NewFlushingWriter wraps the destination. Wrapping twice returns the existing wrapper.
func NewFlushingWriter(destination io.Writer) io.Writer {
	switch typedDestination := destination.(type) {
	case nil:
		return nil
	case *FlushingWriter:
		return typedDestination
	default:
		return &FlushingWriter{destination: destination}
	}
}

// Write forwards the data and flushes when the destination buffers.
func (writer *FlushingWriter) Write(data []byte) (int, error) {
	if writer == nil || writer.destination == nil {
		return 0, io.ErrClosedPipe
	}

	writer.mutex.Lock()
	defer writer.mutex.Unlock()

	bytesWritten, writeError := writer.destination.Write(data)
	if writeError != nil {
		return bytesWritten, writeError
	}

	switch flusher := writer.destination.(type) {
	case errorFlusher:
		return bytesWritten, flusher.Flush()
	case silentFlusher:
		flusher.Flush()
	}
	return bytesWritten, nil
}
