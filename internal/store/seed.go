package store

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/erazemk/najdeno/internal/model"
)

//go:embed seed.yaml
var seedYAML []byte

// ParseSeed decodes a YAML list of records.
func ParseSeed(data []byte) ([]model.Record, error) {
	var records []model.Record
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing seed records: %w", err)
	}
	for i, rec := range records {
		if !rec.Type.Valid() {
			return nil, fmt.Errorf("seed record %d: unknown type %q", i, rec.Type)
		}
	}
	return records, nil
}

// DefaultSeed returns the embedded demonstration records.
func DefaultSeed() []model.Record {
	records, err := ParseSeed(seedYAML)
	if err != nil {
		panic(err)
	}
	return records
}
