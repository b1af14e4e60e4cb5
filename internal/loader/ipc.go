package loader

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	gdserrors "github.com/23skdu/gdsclient/internal/errors"
)

// ReadIPC reads every record of an Arrow IPC file. entity only labels the
// loader metrics. The caller releases the returned records.
func ReadIPC(path, entity string, mem memory.Allocator) ([]arrow.Record, error) {
	start := time.Now()
	f, err := os.Open(path)
	if err != nil {
		return nil, gdserrors.WrapValidationError(err, "loader.ReadIPC", fmt.Sprintf("failed to open %s", path))
	}
	defer f.Close()

	fr, err := ipc.NewFileReader(f, ipc.WithAllocator(allocator(mem)))
	if err != nil {
		return nil, gdserrors.WrapValidationError(err, "loader.ReadIPC", fmt.Sprintf("%s is not an Arrow IPC file", path))
	}
	defer fr.Close()

	recs := make([]arrow.Record, 0, fr.NumRecords())
	var rows int
	for i := 0; i < fr.NumRecords(); i++ {
		rec, err := fr.RecordAt(i)
		if err != nil {
			Release(recs)
			return nil, gdserrors.WrapValidationError(err, "loader.ReadIPC",
				fmt.Sprintf("failed to read record %d of %s", i, path))
		}
		rows += int(rec.NumRows())
		recs = append(recs, rec)
	}
	observe("ipc", entity, start, rows)
	return recs, nil
}

// WriteIPC writes records sharing one schema as an Arrow IPC file.
func WriteIPC(w io.Writer, recs ...arrow.Record) error {
	if len(recs) == 0 {
		return gdserrors.NewValidationError("loader.WriteIPC", "no records to write")
	}
	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(recs[0].Schema()))
	if err != nil {
		return err
	}
	for _, rec := range recs {
		if err := fw.Write(rec); err != nil {
			_ = fw.Close()
			return err
		}
	}
	return fw.Close()
}

// Load reads path as entity tables, choosing the format by extension:
// .parquet, or .arrow, .ipc and .feather for Arrow IPC.
func Load(path, entity string, mem memory.Allocator) ([]arrow.Record, error) {
	if entity != EntityNode && entity != EntityRelationship {
		return nil, gdserrors.NewValidationError("loader.Load", fmt.Sprintf("unknown entity %q", entity))
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		read := ReadNodes
		if entity == EntityRelationship {
			read = ReadRelationships
		}
		rec, err := read(path, mem)
		if err != nil {
			return nil, err
		}
		return []arrow.Record{rec}, nil
	case ".arrow", ".ipc", ".feather":
		return ReadIPC(path, entity, mem)
	}
	return nil, gdserrors.NewValidationError("loader.Load",
		fmt.Sprintf("unsupported file type %q, expected .parquet, .arrow, .ipc or .feather", filepath.Ext(path)))
}

// LoadAll loads every path and concatenates the tables. On error the tables
// loaded so far are released.
func LoadAll(paths []string, entity string, mem memory.Allocator) ([]arrow.Record, error) {
	var out []arrow.Record
	for _, p := range paths {
		recs, err := Load(p, entity, mem)
		if err != nil {
			Release(out)
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

// Release releases every record.
func Release(recs []arrow.Record) {
	for _, r := range recs {
		r.Release()
	}
}
