package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/casualjim/agentgroup/api"
	"github.com/hamba/avro/v2"
	"github.com/hamba/avro/v2/ocf"
)

// DefaultCodec compresses every block of the Avro logs.
const DefaultCodec = ocf.Snappy

var _ Writer = (*AvroWriter)(nil)

// AvroWriter keeps the four logs of a group as Avro object container files.
type AvroWriter struct {
	dir      string
	codec    ocf.CodecName
	metadata map[string][]byte

	mu      sync.Mutex
	variant api.Variant
	logs    map[Kind]*avroLog
}

// NewAvro creates a writer for the logs under dir. Nothing is opened until Init.
// An empty codec selects DefaultCodec.
func NewAvro(dir string, codec ocf.CodecName, metadata map[string]string) *AvroWriter {
	if codec == "" {
		codec = DefaultCodec
	}
	meta := make(map[string][]byte, len(metadata))
	for k, v := range metadata {
		meta[k] = []byte(v)
	}
	return &AvroWriter{dir: dir, codec: codec, metadata: meta}
}

// Path returns the file that holds the given log.
func (w *AvroWriter) Path(kind Kind) string {
	return AvroPath(w.dir, kind)
}

// AvroPath returns the file name of a log inside a group's snapshot directory.
func AvroPath(dir string, kind Kind) string {
	return filepath.Join(dir, string(kind)+".avro")
}

func (w *AvroWriter) Init(ctx context.Context, variant api.Variant, profiles []Profile) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.logs != nil {
		return nil
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	logs := make(map[Kind]*avroLog, len(Kinds))
	for _, kind := range Kinds {
		l, err := w.create(kind, variant)
		if err != nil {
			closeLogs(logs)
			return err
		}
		logs[kind] = l
	}

	if len(profiles) > 0 {
		records := make([]any, len(profiles))
		for i := range profiles {
			records[i] = profiles[i]
		}
		if err := logs[KindProfile].append(records); err != nil {
			closeLogs(logs)
			return err
		}
	}

	w.variant = variant
	w.logs = logs
	return nil
}

func (w *AvroWriter) create(kind Kind, variant api.Variant) (*avroLog, error) {
	text, err := Schema(kind, variant)
	if err != nil {
		return nil, err
	}
	schema, err := avro.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("invalid %s schema: %w", kind, err)
	}

	path := w.Path(kind)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s log: %w", kind, err)
	}
	opts := []ocf.EncoderFunc{ocf.WithCodec(w.codec)}
	if len(w.metadata) > 0 {
		opts = append(opts, ocf.WithMetadata(w.metadata))
	}
	enc, err := ocf.NewEncoder(text, f, opts...)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to start %s log: %w", kind, err)
	}
	return &avroLog{kind: kind, schema: schema, file: f, enc: enc}, nil
}

func (w *AvroWriter) log(kind Kind) (*avroLog, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.logs == nil {
		return nil, ErrNotInitialized
	}
	return w.logs[kind], nil
}

func (w *AvroWriter) AppendStatus(ctx context.Context, records []Status) error {
	l, err := w.log(KindStatus)
	if err != nil {
		return err
	}
	if err := checkVariant(w.variant, records); err != nil {
		return err
	}
	batch := make([]any, len(records))
	for i, r := range records {
		batch[i] = r
	}
	return l.append(batch)
}

func (w *AvroWriter) AppendDialog(ctx context.Context, dialogs ...api.Dialog) error {
	l, err := w.log(KindDialog)
	if err != nil {
		return err
	}
	batch := make([]any, len(dialogs))
	for i := range dialogs {
		batch[i] = dialogs[i]
	}
	return l.append(batch)
}

func (w *AvroWriter) AppendSurvey(ctx context.Context, surveys ...api.Survey) error {
	l, err := w.log(KindSurvey)
	if err != nil {
		return err
	}
	batch := make([]any, len(surveys))
	for i := range surveys {
		batch[i] = surveys[i]
	}
	return l.append(batch)
}

func (w *AvroWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.logs == nil {
		return nil
	}
	err := closeLogs(w.logs)
	w.logs = nil
	return err
}

func closeLogs(logs map[Kind]*avroLog) error {
	var errs []error
	for _, l := range logs {
		errs = append(errs, l.close())
	}
	return errors.Join(errs...)
}

// avroLog is one open container file. Appends are serialized because agents write
// dialogs and surveys from their own goroutines.
type avroLog struct {
	kind   Kind
	schema avro.Schema

	mu     sync.Mutex
	file   *os.File
	enc    *ocf.Encoder
	closed bool
}

// append writes the batch as one block. Records are checked against the schema first so
// a bad record cannot leave half a batch buffered in the encoder.
func (l *avroLog) append(records []any) error {
	if len(records) == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrNotInitialized
	}
	for _, r := range records {
		if _, err := avro.Marshal(l.schema, r); err != nil {
			return fmt.Errorf("invalid %s record: %w", l.kind, err)
		}
	}
	for _, r := range records {
		if err := l.enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode %s record: %w", l.kind, err)
		}
	}
	if err := l.enc.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s log: %w", l.kind, err)
	}
	return nil
}

func (l *avroLog) close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return errors.Join(l.enc.Close(), l.file.Close())
}
