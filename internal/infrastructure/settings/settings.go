package settings

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ErrParse is returned when the file or one of its entries is malformed.
var ErrParse = errors.New("settings: parse error")

// sizeKey holds the element count of a list group.
const sizeKey = "size"

// File is a parsed settings file: a tree of named groups holding scalar
// values.
//
//	UaClientConfig:
//	  ApplicationName: PASClient
//	  NSArray:
//	    size: 2
//	    NameSpaceUri00: http://opcfoundation.org/UA/
//	    NameSpaceUri01: http://cta-observatory.org/p2pas/
type File struct {
	path string
	root Group
}

// Group is a named mapping within a settings file. The zero Group is empty;
// every read on it returns the caller's default.
type Group struct {
	path string
	node *yaml.Node
}

// Load reads and parses a settings file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading settings file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.path = path
	return f, nil
}

// Parse parses settings from YAML text.
func Parse(data []byte) (*File, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	f := &File{}
	if len(doc.Content) == 0 {
		return f, nil
	}
	top := doc.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level must be a mapping of groups", ErrParse)
	}
	f.root = Group{node: top}
	return f, nil
}

// Path returns the file the settings were loaded from, if any.
func (f *File) Path() string {
	return f.path
}

// Group returns a top-level group.
func (f *File) Group(name string) Group {
	return f.root.Group(name)
}

// Name returns the slash-separated path of the group within the file.
func (g Group) Name() string {
	return g.path
}

// Exists reports whether the group is present in the file.
func (g Group) Exists() bool {
	return g.node != nil
}

// Group returns a nested group. A missing or non-mapping entry yields an
// empty group.
func (g Group) Group(name string) Group {
	child := Group{path: joinPath(g.path, name)}
	if v := g.lookup(name); v != nil && v.Kind == yaml.MappingNode {
		child.node = v
	}
	return child
}

// Has reports whether key holds a non-null value.
func (g Group) Has(key string) bool {
	v := g.lookup(key)
	return v != nil && !isNull(v)
}

// String returns the text of a scalar entry, or def when it is absent.
func (g Group) String(key, def string) (string, error) {
	v, ok, err := g.scalar(key)
	if err != nil || !ok {
		return def, err
	}
	return v, nil
}

// Bool returns a boolean entry, or def when it is absent.
func (g Group) Bool(key string, def bool) (bool, error) {
	v, ok, err := g.scalar(key)
	if err != nil || !ok {
		return def, err
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, g.parseError(key, "not a boolean: %q", v)
	}
	return b, nil
}

// Uint32 returns an unsigned integer entry, or def when it is absent.
func (g Group) Uint32(key string, def uint32) (uint32, error) {
	v, ok, err := g.scalar(key)
	if err != nil || !ok {
		return def, err
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return def, g.parseError(key, "not an unsigned 32-bit integer: %q", v)
	}
	return uint32(n), nil
}

// Size returns the element count of a list group, 0 when unset.
func (g Group) Size() (int, error) {
	n, err := g.Uint32(sizeKey, 0)
	return int(n), err
}

// Indexed reads the entries prefix00 .. prefix(n-1). Missing entries read
// as the empty string.
func (g Group) Indexed(prefix string, n int) ([]string, error) {
	out := make([]string, n)
	for i := range out {
		v, err := g.String(Key(prefix, i), "")
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// List reads a list group: its size entry followed by prefixNN entries.
func (g Group) List(prefix string) ([]string, error) {
	n, err := g.Size()
	if err != nil {
		return nil, err
	}
	return g.Indexed(prefix, n)
}

// Key returns the name of element i of a list: the prefix followed by the
// index, zero-padded to two digits.
func Key(prefix string, i int) string {
	return fmt.Sprintf("%s%02d", prefix, i)
}

func (g Group) lookup(key string) *yaml.Node {
	if g.node == nil {
		return nil
	}
	for i := 0; i+1 < len(g.node.Content); i += 2 {
		if g.node.Content[i].Value == key {
			return g.node.Content[i+1]
		}
	}
	return nil
}

func (g Group) scalar(key string) (string, bool, error) {
	v := g.lookup(key)
	if v == nil || isNull(v) {
		return "", false, nil
	}
	if v.Kind == yaml.AliasNode && v.Alias != nil {
		v = v.Alias
	}
	if v.Kind != yaml.ScalarNode {
		return "", false, g.parseError(key, "expected a scalar value")
	}
	return v.Value, true, nil
}

func (g Group) parseError(key, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrParse, joinPath(g.path, key), fmt.Sprintf(format, args...))
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}
