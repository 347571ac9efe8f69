// Package export ships flushed snapshots to external metrics consumers. The
// engine treats exporters as collaborators behind the aggregator.Exporter
// interface; this package provides writer-backed and Redis-backed
// implementations.
package export

import (
	"context"
	"io"
	"sync"

	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/tracepath/internal/libs/serializer"
	"github.com/hyp3rd/tracepath/internal/sentinel"
	"github.com/hyp3rd/tracepath/pkg/aggregator"
)

// WriterExporter serializes each snapshot and appends it, newline-terminated,
// to an io.Writer. Useful for files, pipes, and tests.
type WriterExporter struct {
	mu         sync.Mutex
	writer     io.Writer
	serializer serializer.ISerializer
}

var _ aggregator.Exporter = (*WriterExporter)(nil)

// NewWriterExporter creates a writer exporter using the named serializer
// ("default" for JSON, "msgpack", or "cbor").
func NewWriterExporter(writer io.Writer, serializerName string) (*WriterExporter, error) {
	if writer == nil {
		return nil, sentinel.ErrNilWriter
	}

	ser, err := serializer.New(serializerName)
	if err != nil {
		return nil, err
	}

	return &WriterExporter{writer: writer, serializer: ser}, nil
}

// Export writes one serialized snapshot.
func (e *WriterExporter) Export(ctx context.Context, snapshot *aggregator.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return ewrap.Wrap(err, "export canceled")
	}

	data, err := e.serializer.Marshal(snapshot)
	if err != nil {
		return err
	}

	data = append(data, '\n')

	e.mu.Lock()
	defer e.mu.Unlock()

	_, err = e.writer.Write(data)
	if err != nil {
		return ewrap.Wrap(err, "write snapshot")
	}

	return nil
}
