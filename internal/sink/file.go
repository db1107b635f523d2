package sink

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"path/filepath"
	"strings"

	"trawl/internal/fileutil"
	"trawl/internal/queue"
	"trawl/internal/services"
	"trawl/internal/stage"
)

// FileSink writes records and binaries below an output root:
//
//	<root>/content/<id>/metadata.json
//	<root>/content/<id>/<binary name>
//	<root>/user/<id>.json
type FileSink struct {
	root string
}

// NewFileSink returns a sink rooted at dir.
func NewFileSink(dir string) *FileSink {
	return &FileSink{root: dir}
}

// Name identifies the sink in logs.
func (s *FileSink) Name() string { return "file" }

// Root is the output directory.
func (s *FileSink) Root() string { return s.root }

// RecordPath is where the record for id of kind is written. It doubles as the
// item's result reference.
func (s *FileSink) RecordPath(kind queue.Kind, id string) string {
	safe := safeName(id)
	if kind == queue.KindUser {
		return filepath.Join(s.root, string(queue.KindUser), safe+".json")
	}
	return filepath.Join(s.root, string(kind), safe, "metadata.json")
}

// BinaryPath is where a named binary for a record is written.
func (s *FileSink) BinaryPath(kind queue.Kind, id, name string) string {
	return filepath.Join(s.root, string(kind), safeName(id), safeName(name))
}

// WriteRecords writes each record atomically and returns their paths.
func (s *FileSink) WriteRecords(ctx context.Context, records []stage.Record) ([]string, error) {
	refs := make([]string, 0, len(records))
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := encodeRecord(record)
		if err != nil {
			return nil, services.Wrap(services.ErrIO, "persist", "encode record", record.ID, err)
		}
		path := s.RecordPath(record.Kind, record.ID)
		if err := fileutil.WriteFileAtomic(path, data); err != nil {
			return nil, services.Wrap(services.ErrIO, "persist", "write record", path, err)
		}
		refs = append(refs, path)
	}
	return refs, nil
}

// WriteBinary writes one binary next to its record.
func (s *FileSink) WriteBinary(ctx context.Context, record stage.Record, binary stage.Binary) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	path := s.BinaryPath(record.Kind, record.ID, binary.Name)
	n, err := fileutil.WriteReaderVerified(path, bytes.NewReader(binary.Data))
	if err != nil {
		return "", 0, services.Wrap(services.ErrIO, "persist", "write binary", path, err)
	}
	return path, n, nil
}

func encodeRecord(record stage.Record) ([]byte, error) {
	if len(record.Payload) == 0 {
		record.Payload = json.RawMessage("null")
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// safeName keeps identifiers usable as a single path element. Names that
// need rewriting get a suffix derived from the raw value, so distinct inputs
// never share a path.
func safeName(value string) string {
	var b strings.Builder
	b.Grow(len(value) + 17)
	changed := false
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_' || r == '@':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
			changed = true
		}
	}
	name := b.String()
	if name == "" || name == "." || name == ".." {
		name += "_"
		changed = true
	}
	if !changed {
		return name
	}
	sum := sha256.Sum256([]byte(value))
	return name + "-" + hex.EncodeToString(sum[:8])
}
