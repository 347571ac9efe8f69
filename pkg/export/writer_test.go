package export_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/longbridgeapp/assert"

	"github.com/hyp3rd/tracepath/internal/sentinel"
	"github.com/hyp3rd/tracepath/pkg/aggregator"
	"github.com/hyp3rd/tracepath/pkg/export"
	"github.com/hyp3rd/tracepath/types"
)

func TestNewWriterExporter_NilWriter(t *testing.T) {
	_, err := export.NewWriterExporter(nil, "default")
	assert.Equal(t, sentinel.ErrNilWriter, err)
}

func TestNewWriterExporter_UnknownSerializer(t *testing.T) {
	_, err := export.NewWriterExporter(&bytes.Buffer{}, "unknown")
	assert.True(t, err != nil)
}

func TestWriterExporter_ExportsFlushedSnapshots(t *testing.T) {
	var buf bytes.Buffer

	exporter, err := export.NewWriterExporter(&buf, "default")
	assert.Nil(t, err)

	agg, err := aggregator.New(aggregator.WithExporter(exporter))
	assert.Nil(t, err)

	agg.Record("key-a", 5*time.Millisecond, true, "TIMEOUT")

	result, err := agg.Flush(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, types.FlushSuccess, result)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	assert.Equal(t, 1, len(lines))

	var snap aggregator.Snapshot

	err = json.Unmarshal(lines[0], &snap)
	assert.Nil(t, err)
	assert.Equal(t, 1, len(snap.Paths))
	assert.Equal(t, "key-a", snap.Paths[0].PathKey)
	assert.Equal(t, uint64(1), snap.Paths[0].Throughput)
	assert.Equal(t, "TIMEOUT", snap.Errors[0].ErrorCode)
}

func TestWriterExporter_CanceledContext(t *testing.T) {
	var buf bytes.Buffer

	exporter, err := export.NewWriterExporter(&buf, "default")
	assert.Nil(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = exporter.Export(ctx, &aggregator.Snapshot{})
	assert.True(t, err != nil)
	assert.Equal(t, 0, buf.Len())
}
