package blockdata

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnknownMaterial indicates the block type is not in the catalog.
	ErrUnknownMaterial = errors.New("unknown material")
	// ErrSyntax indicates malformed block-state text.
	ErrSyntax = errors.New("malformed block data")
	// ErrUnknownProperty indicates a property the material does not have.
	ErrUnknownProperty = errors.New("unknown property")
	// ErrInvalidValue indicates a value outside the property's legal set.
	ErrInvalidValue = errors.New("invalid property value")
	// ErrDuplicateProperty indicates the same property was given twice.
	ErrDuplicateProperty = errors.New("duplicate property")
	// ErrMaterialMismatch indicates the text names a different material.
	ErrMaterialMismatch = errors.New("material mismatch")
)

// Data is a block type together with a complete set of block-state
// properties. It is a comparable value; copies never share state.
type Data struct {
	material Material
	state    string
}

// CreateData parses raw block-state text for material m. Accepted forms are
// "", "[k=v,...]" and "<material>[k=v,...]". Properties left out take their
// default values.
func CreateData(m Material, raw string) (Data, error) {
	schema, ok := catalog[m]
	if !ok {
		return Data{}, fmt.Errorf("%q: %w", m, ErrUnknownMaterial)
	}

	text := strings.TrimSpace(raw)
	if text != "" && !strings.HasPrefix(text, "[") {
		name, rest, _ := strings.Cut(text, "[")
		named, ok := MatchMaterial(name)
		if !ok {
			return Data{}, fmt.Errorf("%q: %w", name, ErrUnknownMaterial)
		}
		if named != m {
			return Data{}, fmt.Errorf("%s given for %s: %w", named, m, ErrMaterialMismatch)
		}
		text = ""
		if rest != "" {
			text = "[" + rest
		}
	}

	props, err := parseProperties(text)
	if err != nil {
		return Data{}, err
	}

	for k, v := range props {
		allowed, ok := schema[k]
		if !ok {
			return Data{}, fmt.Errorf("%s has no %q: %w", m, k, ErrUnknownProperty)
		}
		if !allowed.allows(v) {
			return Data{}, fmt.Errorf("%s=%s: %w", k, v, ErrInvalidValue)
		}
	}
	for k, allowed := range schema {
		if _, set := props[k]; !set {
			props[k] = allowed[0]
		}
	}

	return Data{material: m, state: canonical(props)}, nil
}

// ParseData parses text that names its own material, e.g.
// "minecraft:chest[facing=east]".
func ParseData(raw string) (Data, error) {
	name, _, _ := strings.Cut(strings.TrimSpace(raw), "[")
	m, ok := MatchMaterial(name)
	if !ok {
		return Data{}, fmt.Errorf("%q: %w", name, ErrUnknownMaterial)
	}
	return CreateData(m, raw)
}

// Default returns m with every property at its default value.
func Default(m Material) (Data, error) {
	return CreateData(m, "")
}

func parseProperties(text string) (map[string]string, error) {
	props := make(map[string]string)
	if text == "" {
		return props, nil
	}
	if !strings.HasPrefix(text, "[") || !strings.HasSuffix(text, "]") {
		return nil, fmt.Errorf("%q: expected [key=value,...]: %w", text, ErrSyntax)
	}
	body := strings.TrimSpace(text[1 : len(text)-1])
	if body == "" {
		return props, nil
	}
	for _, pair := range strings.Split(body, ",") {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.ToLower(strings.TrimSpace(v))
		if !ok || k == "" || v == "" {
			return nil, fmt.Errorf("%q: %w", strings.TrimSpace(pair), ErrSyntax)
		}
		if _, dup := props[k]; dup {
			return nil, fmt.Errorf("%q: %w", k, ErrDuplicateProperty)
		}
		props[k] = v
	}
	return props, nil
}

func canonical(props map[string]string) string {
	if len(props) == 0 {
		return ""
	}
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('[')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(props[k])
	}
	b.WriteByte(']')
	return b.String()
}

// Material returns the block type.
func (d Data) Material() Material {
	return d.material
}

// IsZero reports whether d was never created.
func (d Data) IsZero() bool {
	return d.material == ""
}

// Property returns the value of property k.
func (d Data) Property(k string) (string, bool) {
	if d.state == "" {
		return "", false
	}
	for _, pair := range strings.Split(d.state[1:len(d.state)-1], ",") {
		key, v, _ := strings.Cut(pair, "=")
		if key == k {
			return v, true
		}
	}
	return "", false
}

// State returns the bracketed property list, or "" for blocks without properties.
func (d Data) State() string {
	return d.state
}

// AsString renders d in the same syntax CreateData accepts.
func (d Data) AsString() string {
	return string(d.material) + d.state
}

func (d Data) String() string {
	return d.AsString()
}

// Equal reports whether both values describe the same block.
func (d Data) Equal(other Data) bool {
	return d == other
}

// Clone returns an independent copy of d.
func (d Data) Clone() Data {
	return Data{material: d.material, state: d.state}
}

// Target receives the outcome chosen for an event.
type Target interface {
	SetBlockData(Data)
}

// State is a mutable block slot, the thing an egg-form event is about to place.
type State struct {
	data Data
}

// NewState returns a slot holding d.
func NewState(d Data) *State {
	return &State{data: d}
}

// SetBlockData replaces the block held by s.
func (s *State) SetBlockData(d Data) {
	s.data = d
}

// BlockData returns the block held by s.
func (s *State) BlockData() Data {
	return s.data
}
