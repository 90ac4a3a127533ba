package table

import (
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow/ipc"
)

// WriteIPC writes the table as a single-batch Arrow IPC file. Extra options
// (compression, for instance) are passed through to the IPC writer.
func WriteIPC(w io.Writer, tbl *Table, opts ...ipc.Option) error {
	rec, err := tbl.ToRecord(Allocator)
	if err != nil {
		return fmt.Errorf("failed to build record: %w", err)
	}
	defer rec.Release()

	opts = append([]ipc.Option{ipc.WithSchema(rec.Schema()), ipc.WithAllocator(Allocator)}, opts...)
	writer, err := ipc.NewFileWriter(w, opts...)
	if err != nil {
		return fmt.Errorf("failed to create IPC writer: %w", err)
	}
	if err := writer.Write(rec); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write record batch: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close IPC writer: %w", err)
	}
	return nil
}

// ReadIPC reads every record batch of an Arrow IPC file into one table.
func ReadIPC(r ipc.ReadAtSeeker) (*Table, error) {
	reader, err := ipc.NewFileReader(r, ipc.WithAllocator(Allocator))
	if err != nil {
		return nil, fmt.Errorf("failed to open IPC file: %w", err)
	}
	defer reader.Close()

	tbl, err := NewFromSchema(reader.Schema())
	if err != nil {
		return nil, err
	}
	for i := 0; i < reader.NumRecords(); i++ {
		// Records returned by Record are owned by the reader.
		rec, err := reader.Record(i)
		if err != nil {
			return nil, fmt.Errorf("failed to read record batch %d: %w", i, err)
		}
		if err := tbl.AppendRecord(rec); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}
