package ve

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tetratelabs/velower/internal/backend"
	"github.com/tetratelabs/velower/internal/backend/regs"
)

func Test_regName(t *testing.T) {
	for _, tc := range []struct {
		r   regs.RealReg
		exp string
	}{
		{r: regs.RealRegInvalid, exp: "invalid"},
		{r: sx0, exp: "%s0"},
		{r: sxReg(63), exp: "%s63"},
		{r: vReg(0), exp: "%v0"},
		{r: vReg(63), exp: "%v63"},
		{r: vmReg(1), exp: "%vm1"},
		{r: qReg(3), exp: "%q3"},
		{r: ucc, exp: "%usrcc"},
		{r: vl, exp: "%vl"},
	} {
		require.Equal(t, tc.exp, regName(tc.r))
		require.Equal(t, tc.exp, NewRegisterInfo().RealRegName(tc.r))
	}
}

func Test_regType(t *testing.T) {
	require.Equal(t, regs.RegTypeScalar, regType(sx7))
	require.Equal(t, regs.RegTypeScalar, regType(qReg(0)))
	require.Equal(t, regs.RegTypeVector, regType(vReg(5)))
	require.Equal(t, regs.RegTypeMask, regType(vmReg(5)))
	v := physReg(vReg(2))
	require.True(t, v.IsRealReg())
	require.Equal(t, vReg(2), v.RealReg())
	require.Equal(t, regs.RegTypeVector, v.RegType())
}

func TestRegisterInfo_CallPreservedRegs(t *testing.T) {
	ri := NewRegisterInfo()
	c := ri.CallPreservedRegs(backend.CallConvC)
	for _, r := range []regs.RealReg{framePointer, linkRegister, stackPointer, gotRegister, pltRegister, sxReg(18), sxReg(33)} {
		require.True(t, c.Has(r), regName(r))
	}
	for _, r := range []regs.RealReg{sx0, sx7, sxReg(34), vReg(0), vmReg(1)} {
		require.False(t, c.Has(r), regName(r))
	}

	all := ri.CallPreservedRegs(backend.CallConvPreserveAll)
	require.False(t, all.Has(sx0))
	require.False(t, all.Has(sx1))
	for _, r := range []regs.RealReg{sx2, sxReg(63), vReg(0), vReg(63), vmReg(0), vmReg(15), vl} {
		require.True(t, all.Has(r), regName(r))
	}
	require.Equal(t, c, ri.CallPreservedRegs(backend.CallConvFast))
}

func TestRegisterInfo_SpecialReg(t *testing.T) {
	ri := NewRegisterInfo()
	for kind, exp := range map[backend.SpecialRegKind]string{
		backend.SpecialRegStackPointer:  "%s11",
		backend.SpecialRegFramePointer:  "%s9",
		backend.SpecialRegStackLimit:    "%s8",
		backend.SpecialRegLinkRegister:  "%s10",
		backend.SpecialRegThreadPointer: "%s14",
		backend.SpecialRegOuter:         "%s12",
		backend.SpecialRegInfo:          "%s17",
		backend.SpecialRegGOT:           "%s15",
		backend.SpecialRegPLT:           "%s16",
		backend.SpecialRegUserCC:        "%usrcc",
		backend.SpecialRegVectorLength:  "%vl",
	} {
		require.Equal(t, exp, regName(ri.SpecialReg(kind)))
	}
	require.Panics(t, func() { ri.SpecialReg(backend.SpecialRegInvalid) })
}
