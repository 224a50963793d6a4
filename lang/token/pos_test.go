package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileSetPosition(t *testing.T) {
	fset := NewFileSet()
	f := fset.AddFile("test.lum", 10)
	// content: "abc\ndef\ng\n" (the newlines at offsets 3 and 7 start lines at offsets 4 and 8)
	f.AddLine(4)
	f.AddLine(8)

	cases := []struct {
		offset   int
		wantLine int
		wantCol  int
	}{
		{0, 1, 1},
		{2, 1, 3},
		{4, 2, 1},
		{6, 2, 3},
		{8, 3, 1},
	}
	for _, c := range cases {
		p := f.Pos(c.offset)
		got := f.Position(p)
		require.Equal(t, c.wantLine, got.Line, "offset %d", c.offset)
		require.Equal(t, c.wantCol, got.Col, "offset %d", c.offset)
		require.Equal(t, "test.lum", got.Filename)
	}
}

func TestFileSetMultipleFiles(t *testing.T) {
	fset := NewFileSet()
	f0 := fset.AddFile("a.lum", 5)
	f1 := fset.AddFile("b.lum", 5)

	require.Same(t, f0, fset.File(f0.Pos(0)))
	require.Same(t, f1, fset.File(f1.Pos(0)))
	require.NotEqual(t, f0.Pos(0), f1.Pos(0))
}

func TestPosIsValid(t *testing.T) {
	require.False(t, NoPos.IsValid())
	require.True(t, Pos(1).IsValid())
}
