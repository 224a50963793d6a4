package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenString(t *testing.T) {
	for tok := Token(0); tok < maxToken; tok++ {
		require.NotEmpty(t, tok.String(), "token %d", tok)
	}
}

func TestKeywords(t *testing.T) {
	for tok := AND; tok < maxToken; tok++ {
		got, ok := Keywords[tok.String()]
		require.True(t, ok, "keyword %s not registered", tok)
		require.Equal(t, tok, got)
	}
}

func TestIsAssignOp(t *testing.T) {
	require.True(t, IsAssignOp(EQ))
	require.True(t, IsAssignOp(PLUS_EQ))
	require.True(t, IsAssignOp(GTGT_EQ))
	require.False(t, IsAssignOp(PLUS))
	require.False(t, IsAssignOp(EQL))
}

func TestBinaryOpFromAssign(t *testing.T) {
	require.Equal(t, PLUS, BinaryOpFromAssign(PLUS_EQ))
	require.Equal(t, GTGT, BinaryOpFromAssign(GTGT_EQ))
}
