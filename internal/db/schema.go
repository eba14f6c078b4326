package db

import (
	"errors"
	"fmt"
	"strings"
)

// FieldKind is the FT schema type of an indexed hash field.
type FieldKind string

// Field kinds understood by FT.CREATE.
const (
	KindText    FieldKind = "TEXT"
	KindTag     FieldKind = "TAG"
	KindNumeric FieldKind = "NUMERIC"
	KindVector  FieldKind = "VECTOR"
)

// Distance is the vector similarity metric.
type Distance string

// Supported metrics.
const (
	Cosine       Distance = "COSINE"
	InnerProduct Distance = "IP"
	Euclidean    Distance = "L2"
)

// HNSW describes a FLOAT32 vector field indexed with HNSW.
// Zero M or EFConstruction keeps the server default.
type HNSW struct {
	Dim            int
	Distance       Distance
	M              int
	EFConstruction int
}

// IndexField is one attribute of the schema.
type IndexField struct {
	Name      string
	Kind      FieldKind
	Weight    float64 // TEXT only, 0 means 1.0
	Separator string  // TAG only
	Vector    *HNSW   // VECTOR only
}

// IndexDefinition is an FT index over hashes sharing one key prefix.
type IndexDefinition struct {
	Name   string
	Prefix string
	Fields []IndexField
}

// Field looks up a schema attribute by name.
func (d *IndexDefinition) Field(name string) (IndexField, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return IndexField{}, false
}

// Validate rejects definitions FT.CREATE would refuse or misinterpret.
func (d *IndexDefinition) Validate() error {
	if !validName(d.Name) {
		return fmt.Errorf("invalid index name %q", d.Name)
	}
	if d.Prefix == "" {
		return errors.New("key prefix is required")
	}
	if len(d.Fields) == 0 {
		return errors.New("schema has no fields")
	}

	seen := make(map[string]struct{}, len(d.Fields))
	vectors := 0
	for _, f := range d.Fields {
		if f.Name == "" {
			return errors.New("field without a name")
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("field %q declared twice", f.Name)
		}
		seen[f.Name] = struct{}{}

		switch f.Kind {
		case KindText:
			if f.Weight < 0 {
				return fmt.Errorf("field %q: negative weight", f.Name)
			}
		case KindTag, KindNumeric:
		case KindVector:
			if f.Vector == nil || f.Vector.Dim <= 0 {
				return fmt.Errorf("field %q: vector needs a positive dimension", f.Name)
			}
			vectors++
		default:
			return fmt.Errorf("field %q: unknown kind %q", f.Name, f.Kind)
		}
	}
	if vectors > 1 {
		return errors.New("only one vector field is supported")
	}
	return nil
}

// validName accepts [A-Za-z0-9_:-]+.
func validName(s string) bool {
	if s == "" {
		return false
	}
	return !strings.ContainsFunc(s, func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return false
		case r == '_' || r == ':' || r == '-':
			return false
		}
		return true
	})
}

// SchemaBuilder assembles an IndexDefinition field by field.
type SchemaBuilder struct {
	def IndexDefinition
}

// NewSchema starts a definition for hashes under prefix.
func NewSchema(name, prefix string) *SchemaBuilder {
	return &SchemaBuilder{def: IndexDefinition{Name: name, Prefix: prefix}}
}

// Text adds a BM25-searchable field; weight 0 keeps the default.
func (b *SchemaBuilder) Text(name string, weight float64) *SchemaBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{Name: name, Kind: KindText, Weight: weight})
	return b
}

// Tag adds a TAG field split on separator (empty means the server default ",").
func (b *SchemaBuilder) Tag(name, separator string) *SchemaBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{Name: name, Kind: KindTag, Separator: separator})
	return b
}

// Numeric adds sortable numeric fields.
func (b *SchemaBuilder) Numeric(names ...string) *SchemaBuilder {
	for _, n := range names {
		b.def.Fields = append(b.def.Fields, IndexField{Name: n, Kind: KindNumeric})
	}
	return b
}

// Vector adds the HNSW vector field.
func (b *SchemaBuilder) Vector(name string, p HNSW) *SchemaBuilder {
	if p.Distance == "" {
		p.Distance = Cosine
	}
	b.def.Fields = append(b.def.Fields, IndexField{Name: name, Kind: KindVector, Vector: &p})
	return b
}

// Build validates the definition.
func (b *SchemaBuilder) Build() (*IndexDefinition, error) {
	def := b.def
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("index %s: %w", def.Name, err)
	}
	return &def, nil
}
