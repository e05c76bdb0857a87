package config

import (
	"fmt"

	"github.com/couchcryptid/city-livability-etl/internal/domain"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// LoadCatalog returns the default metric catalog, or the catalog described by
// the YAML file at path when path is non-empty:
//
//	metrics:
//	  - name: population
//	    min: 50000
//	    max: 10000000
//	    weight: 0.10
//	    lower_is_better: false
//
// The file replaces the whole catalog and is validated like the default.
func LoadCatalog(path string) (*domain.Catalog, error) {
	if path == "" {
		return domain.DefaultCatalog(), nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load catalog file: %w", err)
	}

	var specs []domain.MetricSpec
	if err := k.UnmarshalWithConf("metrics", &specs, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decode catalog file: %w", err)
	}

	catalog, err := domain.NewCatalog(specs)
	if err != nil {
		return nil, fmt.Errorf("catalog file %s: %w", path, err)
	}
	return catalog, nil
}
