package config

import (
	"fmt"
	"io"
	"reflect"

	"gopkg.in/yaml.v3"
)

// YAMLProvider serves a YAML document; nested mappings become dotted keys.
//
//	server:
//	  addr: ":8080"   →  "server.addr"
type YAMLProvider struct {
	values map[string]any
}

// NewYAMLProvider decodes one YAML document from r.
func NewYAMLProvider(r io.Reader) (*YAMLProvider, error) {
	doc := map[string]any{}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("config: decoding yaml: %w", err)
	}
	flat := make(map[string]any, len(doc))
	flatten("", doc, flat)
	return &YAMLProvider{values: flat}, nil
}

// ParseYAML is NewYAMLProvider for an in-memory document.
func ParseYAML(data []byte) (*YAMLProvider, error) {
	doc := map[string]any{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("config: decoding yaml: %w", err)
	}
	flat := make(map[string]any, len(doc))
	flatten("", doc, flat)
	return &YAMLProvider{values: flat}, nil
}

func (p *YAMLProvider) Contains(key string) bool {
	_, ok := p.values[key]
	return ok
}

func (p *YAMLProvider) Value(key string, typ reflect.Type) (any, bool) {
	raw, ok := p.values[key]
	if !ok {
		return nil, false
	}
	return Convert(raw, typ)
}
