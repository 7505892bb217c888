package dungeon

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/dungeon/internal/game/tag"
)

// ErrMalformedMap is wrapped by every structural map error: a root or
// sub-location that is not a single-key mapping, a location value that is not
// a list, or a child entry of an unsupported shape.
var ErrMalformedMap = errors.New("malformed dungeon map")

// LoadFromFile reads a JSON or YAML map file and builds its tree.
//
// Precondition: path must point to a readable map file.
// Postcondition: Returns a built Tree or a non-nil error.
func LoadFromFile(path string) (*Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading map file %s: %w", path, err)
	}
	tree, err := LoadFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("loading map file %s: %w", path, err)
	}
	return tree, nil
}

// LoadFromBytes decodes a JSON or YAML map document and builds its tree.
// JSON is decoded with the YAML parser so mapping order is preserved.
//
// Postcondition: Returns a built Tree or a non-nil error.
func LoadFromBytes(data []byte) (*Tree, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing map document: %w", err)
	}
	return Build(&doc)
}

// Build materializes the tree from a decoded document. Strings become
// encounters, exits or childless locations; single-key mappings become
// locations with children.
//
// Precondition: doc must be non-nil.
// Postcondition: Returns a Tree with a non-nil Root, or an error wrapping
// ErrMalformedMap or *tag.MalformedTagError.
func Build(doc *yaml.Node) (*Tree, error) {
	n := doc
	if n.Kind == yaml.DocumentNode {
		if len(n.Content) == 0 {
			return nil, fmt.Errorf("%w: empty document", ErrMalformedMap)
		}
		n = n.Content[0]
	}
	root, err := buildLocation(n, nil)
	if err != nil {
		return nil, err
	}
	return &Tree{Root: root}, nil
}

func buildLocation(n *yaml.Node, path []string) (*Location, error) {
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		return nil, wrapPath(path, fmt.Errorf("%w: line %d: expected a single-key location mapping", ErrMalformedMap, n.Line))
	}
	key, value := n.Content[0], n.Content[1]
	if key.Kind != yaml.ScalarNode {
		return nil, wrapPath(path, fmt.Errorf("%w: line %d: location key must be a string", ErrMalformedMap, key.Line))
	}

	t, err := tag.Parse(key.Value)
	if err != nil {
		return nil, wrapPath(path, err)
	}
	if t.Kind != tag.KindLocation {
		return nil, wrapPath(path, fmt.Errorf("%w: line %d: mapping key %q is a %s, not a location", ErrMalformedMap, key.Line, key.Value, t.Kind))
	}

	path = append(path, key.Value)
	loc := &Location{tag: t}

	switch {
	case value.Kind == yaml.SequenceNode:
	case value.Kind == yaml.ScalarNode && value.Tag == "!!null":
		return loc, nil
	default:
		return nil, wrapPath(path, fmt.Errorf("%w: line %d: location value must be a list", ErrMalformedMap, value.Line))
	}

	loc.Children = make([]Node, 0, len(value.Content))
	for _, item := range value.Content {
		child, err := buildChild(item, path)
		if err != nil {
			return nil, err
		}
		loc.Children = append(loc.Children, child)
	}
	return loc, nil
}

func buildChild(n *yaml.Node, path []string) (Node, error) {
	switch n.Kind {
	case yaml.MappingNode:
		return buildLocation(n, path)
	case yaml.ScalarNode:
		t, err := tag.Parse(n.Value)
		if err != nil {
			return nil, wrapPath(path, err)
		}
		switch t.Kind {
		case tag.KindEncounter:
			return NewEncounter(t), nil
		case tag.KindExit:
			return NewExit(t), nil
		default:
			return NewLocation(t), nil
		}
	default:
		return nil, wrapPath(path, fmt.Errorf("%w: line %d: child must be a tag string or a location mapping", ErrMalformedMap, n.Line))
	}
}

func wrapPath(path []string, err error) error {
	if len(path) == 0 {
		return err
	}
	return fmt.Errorf("in %s: %w", strings.Join(path, " > "), err)
}
