// Package labelmap loads the .pbtxt label map files used to give each
// object class a stable numeric ID.
//
// The files are a tiny subset of protobuf text format:
//
//	item {
//	  id: 1
//	  name: "cat"
//	}
//
// We parse this shape directly rather than dragging in the TensorFlow
// descriptor for StringIntLabelMap.
package labelmap

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var ErrDuplicateName = fmt.Errorf("Duplicate label name")
var ErrDuplicateID = fmt.Errorf("Duplicate label ID")

// IDs must be positive. Zero is reserved for the background class by the
// training pipelines that consume our output.
var ErrInvalidID = fmt.Errorf("Label ID must be a positive integer")

var itemOpenRegex = regexp.MustCompile(`^item\s*\{$`)
var fieldRegex = regexp.MustCompile(`^(\w+)\s*:\s*(.+)$`)

// LabelMap is an immutable name <-> ID table.
type LabelMap struct {
	byName map[string]int
	byID   map[int]string
}

// Load reads a label map from a .pbtxt file.
func Load(filename string) (*LabelMap, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", filename, err)
	}
	return m, nil
}

// Parse reads a label map in .pbtxt form.
func Parse(r io.Reader) (*LabelMap, error) {
	m := &LabelMap{
		byName: map[string]int{},
		byID:   map[int]string{},
	}
	scanner := bufio.NewScanner(r)
	lineNum := 0
	insideItem := false
	itemName := ""
	itemID := 0
	haveName := false
	haveID := false

	flush := func() error {
		if !haveName || !haveID {
			return fmt.Errorf("item is missing a name or an id")
		}
		if _, exists := m.byName[itemName]; exists {
			return fmt.Errorf("%w: '%v'", ErrDuplicateName, itemName)
		}
		if _, exists := m.byID[itemID]; exists {
			return fmt.Errorf("%w: %v", ErrDuplicateID, itemID)
		}
		m.byName[itemName] = itemID
		m.byID[itemID] = itemName
		return nil
	}

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		if line == "" {
			continue
		}
		switch {
		case itemOpenRegex.MatchString(line):
			if insideItem {
				return nil, fmt.Errorf("line %v: nested item", lineNum)
			}
			insideItem = true
			itemName = ""
			itemID = 0
			haveName = false
			haveID = false
		case line == "}":
			if !insideItem {
				return nil, fmt.Errorf("line %v: unexpected '}'", lineNum)
			}
			if err := flush(); err != nil {
				return nil, fmt.Errorf("line %v: %w", lineNum, err)
			}
			insideItem = false
		default:
			groups := fieldRegex.FindStringSubmatch(line)
			if groups == nil || !insideItem {
				return nil, fmt.Errorf("line %v: unrecognized syntax '%v'", lineNum, line)
			}
			key, value := groups[1], groups[2]
			switch key {
			case "name":
				name, err := unquote(value)
				if err != nil {
					return nil, fmt.Errorf("line %v: %w", lineNum, err)
				}
				itemName = name
				haveName = true
			case "id":
				id, err := strconv.Atoi(value)
				if err != nil {
					return nil, fmt.Errorf("line %v: invalid id '%v'", lineNum, value)
				}
				if id <= 0 {
					return nil, fmt.Errorf("line %v: %w (got %v)", lineNum, ErrInvalidID, id)
				}
				itemID = id
				haveID = true
			case "display_name":
				// informational only
			default:
				return nil, fmt.Errorf("line %v: unknown field '%v'", lineNum, key)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if insideItem {
		return nil, fmt.Errorf("unterminated item at end of file")
	}
	if len(m.byName) == 0 {
		return nil, fmt.Errorf("label map contains no items")
	}
	return m, nil
}

func unquote(v string) (string, error) {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1], nil
		}
	}
	return "", fmt.Errorf("invalid name '%v' (expected quoted string)", v)
}

// ID returns the numeric ID of a label name.
func (m *LabelMap) ID(name string) (int, bool) {
	id, ok := m.byName[name]
	return id, ok
}

// Name returns the label name for a numeric ID.
func (m *LabelMap) Name(id int) (string, bool) {
	name, ok := m.byID[id]
	return name, ok
}

func (m *LabelMap) Len() int {
	return len(m.byName)
}

// Names returns all label names, sorted by ID.
func (m *LabelMap) Names() []string {
	ids := make([]int, 0, len(m.byID))
	for id := range m.byID {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = m.byID[id]
	}
	return names
}
