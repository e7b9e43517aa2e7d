package bytecode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuilderConstAdd(t *testing.T) {
	b := NewBuilder()
	b.ConstI32(41)
	b.ConstI32(1)
	b.Add(TypeI32)
	b.Ret(1)
	require.Equal(t, 2, b.MaxStack())

	code, err := b.Finish()
	require.NoError(t, err)
	require.NotEmpty(t, code)
	require.Equal(t, byte(CONST_I32), code[0])
}

func TestBuilderJumpFixup(t *testing.T) {
	b := NewBuilder()
	l := b.NewLabel()
	b.Jmp(l)
	b.Nop()
	b.BindLabel(l)
	b.Ret(0)

	code, err := b.Finish()
	require.NoError(t, err)
	// jmp opcode byte + 4-byte fixed target.
	require.Equal(t, byte(JMP), code[0])
	require.Len(t, code, 1+4+1+1) // jmp(1+4) + nop(1) + ret(1)
}

func TestBuilderUnboundLabelFails(t *testing.T) {
	b := NewBuilder()
	l := b.NewLabel()
	b.Jmp(l)
	_, err := b.Finish()
	require.Error(t, err)
	require.IsType(t, &EncodeError{}, err)
}

func TestStackEffectTable(t *testing.T) {
	require.Equal(t, -1, stackEffect(POP))
	require.Equal(t, 1, stackEffect(DUP))
	require.Equal(t, variableEffect, stackEffect(CALL))
}

func TestTypeRoundTrip(t *testing.T) {
	for _, want := range NumericTypes {
		got, ok := ParseType(want.String())
		require.True(t, ok)
		require.Equal(t, want, got)
	}
}
