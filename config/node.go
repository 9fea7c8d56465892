package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotMapping indicates the document root is not a key/value mapping.
var ErrNotMapping = errors.New("config: document root must be a mapping")

// Node is a read-only view of one mapping in a YAML configuration document.
// Scalars are exposed in their raw textual form; nested mappings are Nodes.
type Node struct {
	path string
	name string
	raw  *yaml.Node
}

// Parse builds the root node of a YAML document. An empty document yields an
// empty root.
func Parse(data []byte) (*Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	root := &doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return Empty(), nil
		}
		root = root.Content[0]
	}
	switch root.Kind {
	case 0:
		return Empty(), nil
	case yaml.MappingNode:
		return &Node{raw: root}, nil
	case yaml.ScalarNode:
		if root.ShortTag() == "!!null" {
			return Empty(), nil
		}
	}
	return nil, ErrNotMapping
}

// Load reads and parses the YAML file at path.
func Load(path string) (*Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Empty returns a root node without any entries.
func Empty() *Node {
	return &Node{raw: &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}}
}

// Path returns the dotted location of this node relative to the document root.
// The root itself has an empty path.
func (n *Node) Path() string {
	return n.path
}

// Name returns the last segment of Path.
func (n *Node) Name() string {
	return n.name
}

// Keys returns the direct child keys in document order.
func (n *Node) Keys() []string {
	keys := make([]string, 0, len(n.raw.Content)/2)
	seen := make(map[string]struct{}, len(n.raw.Content)/2)
	for i := 0; i+1 < len(n.raw.Content); i += 2 {
		k := n.raw.Content[i].Value
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of direct children.
func (n *Node) Len() int {
	return len(n.Keys())
}

// Has reports whether any value, scalar or mapping, exists at key.
func (n *Node) Has(key string) bool {
	v := n.lookup(key)
	return v != nil && !isNull(v)
}

// Section returns the mapping stored at key.
func (n *Node) Section(key string) (*Node, bool) {
	v := n.lookup(key)
	if v == nil || v.Kind != yaml.MappingNode {
		return nil, false
	}
	segments := strings.Split(key, ".")
	return &Node{
		path: n.Qualify(key),
		name: segments[len(segments)-1],
		raw:  v,
	}, true
}

// String returns the raw text of the scalar stored at key.
func (n *Node) String(key string) (string, bool) {
	v := n.lookup(key)
	if v == nil || v.Kind != yaml.ScalarNode || isNull(v) {
		return "", false
	}
	return v.Value, true
}

// Qualify joins key onto this node's path.
func (n *Node) Qualify(key string) string {
	if n.path == "" {
		return key
	}
	return n.path + "." + key
}

func (n *Node) lookup(key string) *yaml.Node {
	if key == "" {
		return nil
	}
	cur := n.raw
	for _, seg := range strings.Split(key, ".") {
		cur = child(cur, seg)
		if cur == nil {
			return nil
		}
	}
	return cur
}

func child(m *yaml.Node, key string) *yaml.Node {
	if m == nil || key == "" {
		return nil
	}
	m = deref(m)
	if m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return deref(m.Content[i+1])
		}
	}
	return nil
}

func deref(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null"
}
