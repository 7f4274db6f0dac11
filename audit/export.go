package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/klauspost/compress/zstd"
)

type traceKey struct{}

// WithTraceID attaches a request trace id that the database mirror records.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

// TraceID returns the trace id carried by ctx, or "".
func TraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}

// Export streams the whole log to w as a single zstd frame.
func (svc *Service) Export(w io.Writer) (int64, error) {
	f, err := os.Open(svc.path)
	if err != nil {
		return 0, fmt.Errorf("audit: open %s: %w", svc.path, err)
	}
	defer f.Close()

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return 0, fmt.Errorf("audit: zstd: %w", err)
	}
	n, err := io.Copy(enc, f)
	if err != nil {
		enc.Close()
		return n, fmt.Errorf("audit: export: %w", err)
	}
	if err := enc.Close(); err != nil {
		return n, fmt.Errorf("audit: export: %w", err)
	}
	return n, nil
}

// ReadEntries decodes every line of the log at path. A missing file yields no
// entries.
func ReadEntries(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	defer f.Close()
	return decodeEntries(f)
}

// DecodeExport reads back a stream produced by Export.
func DecodeExport(r io.Reader) ([]Entry, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("audit: zstd: %w", err)
	}
	defer dec.Close()
	return decodeEntries(dec)
}

func decodeEntries(r io.Reader) ([]Entry, error) {
	var out []Entry
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for line := 1; sc.Scan(); line++ {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return out, fmt.Errorf("audit: line %d: %w", line, err)
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		return out, fmt.Errorf("audit: scan: %w", err)
	}
	return out, nil
}
