package storage

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/yu23ki14/Footprint-Jibungoto/domain"
)

// FileCatalog serves actions from a YAML document keyed by category. It backs
// local runs and seeds the table in storage-init.
type FileCatalog struct {
	catalog domain.Catalog
}

// LoadFileCatalog reads and validates a YAML catalog file.
func LoadFileCatalog(path string) (*FileCatalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	catalog, err := ParseCatalog(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &FileCatalog{catalog: catalog}, nil
}

// ParseCatalog decodes a YAML catalog. Unknown categories and duplicate ids
// within a category are rejected.
func ParseCatalog(r io.Reader) (domain.Catalog, error) {
	var raw map[string][]domain.Action
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	catalog := make(domain.Catalog, len(raw))
	for key, actions := range raw {
		category, ok := domain.ParseCategory(key)
		if !ok {
			return nil, fmt.Errorf("unknown category %q", key)
		}
		seen := make(map[int]struct{}, len(actions))
		for _, a := range actions {
			if _, dup := seen[a.ID]; dup {
				return nil, fmt.Errorf("category %s: duplicate action id %d", category, a.ID)
			}
			seen[a.ID] = struct{}{}
		}
		catalog[category] = actions
	}
	return catalog, nil
}

// FetchActions returns a copy of the catalog.
func (f *FileCatalog) FetchActions(context.Context) (domain.Catalog, error) {
	out := make(domain.Catalog, len(f.catalog))
	for category, actions := range f.catalog {
		out[category] = domain.CloneActions(actions)
	}
	return out, nil
}
