package labelmap

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	m, err := Parse(strings.NewReader(`
# VOC-style label map
item {
  id: 1
  name: "cat"
}
item {
  name: 'dog'
  id: 2
  display_name: "Dog"
}
`))
	require.NoError(t, err)
	require.Equal(t, 2, m.Len())

	id, ok := m.ID("cat")
	require.True(t, ok)
	require.Equal(t, 1, id)
	id, ok = m.ID("dog")
	require.True(t, ok)
	require.Equal(t, 2, id)
	_, ok = m.ID("horse")
	require.False(t, ok)

	name, ok := m.Name(2)
	require.True(t, ok)
	require.Equal(t, "dog", name)

	require.Equal(t, []string{"cat", "dog"}, m.Names())
}

func TestParseErrors(t *testing.T) {
	bad := func(src string, errContains string) {
		t.Helper()
		_, err := Parse(strings.NewReader(src))
		require.Error(t, err)
		require.Contains(t, err.Error(), errContains)
	}

	bad(`item { name: "cat" id: 1 }`, "unrecognized syntax")
	bad("item {\n  name: \"cat\"\n}\n", "missing")
	bad("item {\n  id: 1\n}\n", "missing")
	bad("item {\n  name: cat\n  id: 1\n}\n", "quoted")
	bad("item {\n  name: \"cat\"\n  id: 0\n}\n", "positive")
	bad("item {\n  name: \"cat\"\n  id: -3\n}\n", "positive")
	bad("item {\n  name: \"cat\"\n  id: x\n}\n", "invalid id")
	bad("item {\n  name: \"cat\"\n  id: 1\n", "unterminated")
	bad("", "no items")
	bad("name: \"cat\"\n", "unrecognized")

	_, err := Parse(strings.NewReader("item {\n name: \"cat\"\n id: 1\n}\nitem {\n name: \"cat\"\n id: 2\n}\n"))
	require.ErrorIs(t, err, ErrDuplicateName)

	_, err = Parse(strings.NewReader("item {\n name: \"cat\"\n id: 1\n}\nitem {\n name: \"dog\"\n id: 1\n}\n"))
	require.ErrorIs(t, err, ErrDuplicateID)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("no-such-file.pbtxt")
	require.Error(t, err)
}
