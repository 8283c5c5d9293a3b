package vocab

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFold(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Colla Vella dels Xiquets de Valls", "colla vella dels xiquets de valls"},
		{"Capgrossos de Mataró", "capgrossos de mataro"},
		{"Sant Fèlix", "sant felix"},
		{"ÚRSULA", "ursula"},
		{"ça", "ca"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Fold(tt.in), "Fold(%q)", tt.in)
	}
}

func TestCatalogCanonical(t *testing.T) {
	c := NewStaticCatalog(map[Kind][]string{
		KindTeam: {"Capgrossos de Mataró"},
	})

	display, ok := c.Canonical(KindTeam, "capgrossos de mataro")
	require.True(t, ok)
	assert.Equal(t, "Capgrossos de Mataró", display, "display form keeps accents")

	_, ok = c.Canonical(KindTeam, "colla inexistent")
	assert.False(t, ok)
}

type fakeSource struct {
	byQuery map[string][]string
	err     error
}

func (f *fakeSource) QueryStrings(_ context.Context, sql string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byQuery[sql], nil
}

func TestCatalogReload(t *testing.T) {
	src := &fakeSource{byQuery: map[string][]string{
		loadQueries[KindTeam]:  {"Minyons de Terrassa"},
		loadQueries[KindPlace]: {"Terrassa"},
	}}
	c := NewCatalog(src)

	assert.Empty(t, c.Values(KindTeam), "empty before reload")

	require.NoError(t, c.Reload(context.Background()))
	assert.Equal(t, []string{"Minyons de Terrassa"}, c.Values(KindTeam))
	assert.True(t, c.Contains(KindPlace, "terrassa"))
}

func TestCatalogReloadFailureKeepsSnapshot(t *testing.T) {
	src := &fakeSource{byQuery: map[string][]string{
		loadQueries[KindTeam]: {"Minyons de Terrassa"},
	}}
	c := NewCatalog(src)
	require.NoError(t, c.Reload(context.Background()))

	src.err = assert.AnError
	require.Error(t, c.Reload(context.Background()))

	assert.Equal(t, []string{"Minyons de Terrassa"}, c.Values(KindTeam),
		"failed reload must not tear the previous snapshot")
}

func TestCatalogWithoutSource(t *testing.T) {
	c := &Catalog{}
	c.snap.Store(emptySnapshot())
	assert.Error(t, c.Reload(context.Background()))
}
