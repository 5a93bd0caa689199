package ir

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meshdoctor/internal/types"
)

func docWithExpect(t *testing.T, payload string) *Document {
	t.Helper()
	var block map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(payload), &block))
	return &Document{Debug: &Debug{ExpectModifiers: block}}
}

func TestExpectationTableLongestPrefixWins(t *testing.T) {
	doc := docWithExpect(t, `{
		"slat_": ["SIMPLE_DEFORM:BEND", "SOLIDIFY", "BEVEL"],
		"back_slat_": ["MIRROR"]
	}`)

	table, err := doc.ExpectationTable()
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())

	entry, ok := table.Match("back_slat_01")
	require.True(t, ok)
	assert.Equal(t, "back_slat_", entry.NamePrefix)
	assert.Equal(t, []string{"MIRROR"}, entry.Required)

	entry, ok = table.Match("slat_03")
	require.True(t, ok)
	assert.Equal(t, "slat_", entry.NamePrefix)
	assert.Equal(t, []string{"SIMPLE_DEFORM:BEND", "SOLIDIFY", "BEVEL"}, entry.Required)

	// Unmatched meshes are exempt.
	_, ok = table.Match("leg_front_left")
	assert.False(t, ok)
}

func TestExpectationTableMatchIsCaseInsensitive(t *testing.T) {
	doc := docWithExpect(t, `{"Slat_": ["bevel"]}`)
	table, err := doc.ExpectationTable()
	require.NoError(t, err)

	entry, ok := table.Match("SLAT_10")
	require.True(t, ok)
	assert.Equal(t, []string{"BEVEL"}, entry.Required)
}

func TestExpectationTableMalformedValue(t *testing.T) {
	doc := docWithExpect(t, `{"slat_": {"not": "a list"}}`)
	_, err := doc.ExpectationTable()
	require.Error(t, err)

	var cfgErr *types.ConfigError
	assert.True(t, errors.As(err, &cfgErr), "want ConfigError, got %T", err)
}

func TestExpectationTableNormalizesAndDeduplicates(t *testing.T) {
	doc := docWithExpect(t, `{"arm_": [" mirror ", "MIRROR", "simple_deform: bend", ""]}`)
	table, err := doc.ExpectationTable()
	require.NoError(t, err)

	entry, ok := table.Match("arm_left")
	require.True(t, ok)
	assert.Equal(t, []string{"MIRROR", "SIMPLE_DEFORM:BEND"}, entry.Required)
}

func TestExpectationTableEmptyWithoutDebugBlock(t *testing.T) {
	table, err := (&Document{}).ExpectationTable()
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())

	var nilDoc *Document
	table, err = nilDoc.ExpectationTable()
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
}

func TestNormalizeModifierKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"bevel", "BEVEL"},
		{" Simple_Deform : Bend ", "SIMPLE_DEFORM:BEND"},
		{"SIMPLE_DEFORM:", "SIMPLE_DEFORM"},
		{"", ""},
		{"  ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeModifierKey(tt.in), "input %q", tt.in)
	}
}
