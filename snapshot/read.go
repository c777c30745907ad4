package snapshot

import (
	"fmt"
	"os"

	"github.com/hamba/avro/v2/ocf"
)

// ReadAvro decodes every record of an Avro log into T. Use map[string]any when the
// schema is not known up front.
func ReadAvro[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := ocf.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var out []T
	for dec.HasNext() {
		var v T
		if err := dec.Decode(&v); err != nil {
			return out, fmt.Errorf("failed to decode record %d of %s: %w", len(out), path, err)
		}
		out = append(out, v)
	}
	return out, dec.Error()
}

// AvroMetadata returns the metadata stored in an Avro log header, including the
// avro.schema and avro.codec entries.
func AvroMetadata(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := ocf.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	meta := make(map[string]string)
	for k, v := range dec.Metadata() {
		meta[k] = string(v)
	}
	return meta, nil
}
