package hostimport

import (
	"testing"

	"github.com/JJLDonley/Simple-sub005/lang/bytecode"
	"github.com/stretchr/testify/require"
)

func TestCanonicalizeAliasForms(t *testing.T) {
	for _, path := range []string{"core.fs", "Core.FS", "Core.Fs", "core_fs", "CORE_FS"} {
		m, ok := Canonicalize(path)
		require.True(t, ok, path)
		require.Equal(t, CoreFS, m, path)
	}
}

func TestCanonicalizeNonReserved(t *testing.T) {
	_, ok := Canonicalize("mathlib")
	require.False(t, ok)
}

func TestCoreFSHasFourSymbols(t *testing.T) {
	syms := Symbols(CoreFS)
	require.Len(t, syms, 4)
	names := map[string]bool{}
	for _, s := range syms {
		names[s.Name] = true
	}
	require.True(t, names["open"] && names["close"] && names["read"] && names["write"])
}

func TestIsScalarABI(t *testing.T) {
	require.True(t, IsScalarABI(bytecode.TypeI32))
	require.True(t, IsScalarABI(bytecode.TypeBool))
	require.False(t, IsScalarABI(bytecode.TypeString))
	require.False(t, IsScalarABI(bytecode.TypeRef))
}

func TestDlCallIntrinsicFor(t *testing.T) {
	name, ok := DlCallIntrinsicFor(bytecode.TypeF64)
	require.True(t, ok)
	require.Equal(t, "DlCallF64", name)
}
