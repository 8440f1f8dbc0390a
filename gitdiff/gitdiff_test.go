package gitdiff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNameStatus(t *testing.T) {
	out := "A\tspecs/01-domain/entities/Pedido.md\n" +
		"M\tspecs/01-domain/entities/Usuario.md\n" +
		"D\tspecs/01-domain/events/EVT-X.md\n" +
		"R100\tspecs/old.md\tspecs/new.md\n"

	changes, err := ParseNameStatus(out)
	require.NoError(t, err)
	require.Len(t, changes, 4)

	assert.Equal(t, Added, changes[0].Status)
	assert.Equal(t, "specs/01-domain/entities/Pedido.md", changes[0].Path)
	assert.Equal(t, Modified, changes[1].Status)
	assert.Equal(t, Deleted, changes[2].Status)
	assert.Equal(t, Renamed, changes[3].Status)
	assert.Equal(t, "specs/old.md", changes[3].OldPath)
	assert.Equal(t, "specs/new.md", changes[3].Path)
}

func TestParseNameStatusEmpty(t *testing.T) {
	changes, err := ParseNameStatus("")
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestParseNameStatusMalformedRename(t *testing.T) {
	_, err := ParseNameStatus("R90\tonly-one-path.md")
	assert.Error(t, err)
}
