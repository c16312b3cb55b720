package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	ID      string  `db:"id"`
	Name    string  `db:"name"`
	Skipped string  `db:"-"`
	Nick    *string `db:"nick"`
	NoTag   int
	private string `db:"private"`
}

func TestStructTagValues(t *testing.T) {
	assert.Equal(t, []string{"id", "name", "nick"}, StructTagValues(sample{}))
	assert.Equal(t, []string{"id", "name", "nick"}, StructTagValues(&sample{}))
}

func TestStructToMap(t *testing.T) {
	nick := "nick"
	s := &sample{ID: "1", Name: "name", Nick: &nick, private: "x"}

	m := StructToMap(s)
	require.Len(t, m, 3)
	assert.Equal(t, "1", m["id"])
	assert.Equal(t, &nick, m["nick"])

	m = StructToMap(s, "id")
	assert.NotContains(t, m, "id")
	assert.Contains(t, m, "name")
}

func TestStructTagValuesPanicsOnNonStruct(t *testing.T) {
	assert.Panics(t, func() { StructTagValues(42) })
}

func TestPrefixColumns(t *testing.T) {
	assert.Equal(t, []string{"u.id", "u.name"}, PrefixColumns("u", []string{"id", "name"}))
}

func TestTempPassword(t *testing.T) {
	pw, err := TempPassword()
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9a-f]{8}$`, pw)
}

func TestNonEmptyStringPtr(t *testing.T) {
	assert.Nil(t, NonEmptyStringPtr("   "))
	assert.Equal(t, "x", *NonEmptyStringPtr(" x "))
}
