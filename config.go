package velower

import (
	"fmt"

	"github.com/tetratelabs/velower/internal/backend"
	"github.com/tetratelabs/velower/internal/backend/isa/ve"
)

// LoweringConfig controls how functions are lowered for VE, with the default implementation as NewLoweringConfig.
//
// Note: LoweringConfig is immutable. Each WithXXX function returns a new instance including the corresponding change.
type LoweringConfig interface {
	// WithPositionIndependent makes symbol addresses relative to the GOT, and direct calls go through the PLT.
	// Defaults to false.
	WithPositionIndependent(bool) LoweringConfig

	// WithVectorLanes sets the number of lanes of a vector register. Defaults to 256.
	//
	// Note: This panics unless lanes is a power of two multiple of 64, as masks are built from 64-bit words.
	WithVectorLanes(lanes int) LoweringConfig

	// WithStackArgumentBase sets the offset of the argument area from the stack pointer at a call.
	// Defaults to 176, the size of the VE register save area.
	//
	// Note: This panics unless offset is a positive multiple of 16, the alignment of the stack pointer.
	WithStackArgumentBase(offset int64) LoweringConfig

	// WithDSOLocalSymbols declares symbols that bind within the module being compiled. Position independent
	// code reaches them relative to the GOT base without loading a GOT entry.
	WithDSOLocalSymbols(names ...string) LoweringConfig

	// WithFunctionDecl declares a function whose first parameter points to a struct of firstParamPointeeSize
	// bytes. A call to it returns that struct through memory.
	WithFunctionDecl(name string, firstParamPointeeSize int64) LoweringConfig
}

// NewLoweringConfig returns a LoweringConfig with the defaults of the VE C ABI.
func NewLoweringConfig() LoweringConfig {
	return defaultLoweringConfig.clone()
}

type loweringConfig struct {
	positionIndependent bool
	vectorLanes         int
	stackArgumentBase   int64
	decls               declarations
}

// defaultLoweringConfig helps avoid copy/pasting the wrong defaults.
var defaultLoweringConfig = &loweringConfig{
	vectorLanes:       ve.DefaultVectorLanes,
	stackArgumentBase: ve.DefaultStackArgumentBase,
}

// clone makes a deep copy of this lowering config.
func (c *loweringConfig) clone() *loweringConfig {
	ret := *c // copy except maps which share a ref
	if c.decls != nil {
		ret.decls = make(declarations, len(c.decls))
		for name, decl := range c.decls {
			ret.decls[name] = decl
		}
	}
	return &ret
}

// WithPositionIndependent implements LoweringConfig.WithPositionIndependent
func (c *loweringConfig) WithPositionIndependent(enabled bool) LoweringConfig {
	ret := c.clone()
	ret.positionIndependent = enabled
	return ret
}

// WithVectorLanes implements LoweringConfig.WithVectorLanes
func (c *loweringConfig) WithVectorLanes(lanes int) LoweringConfig {
	if lanes < 64 || lanes%64 != 0 || lanes&(lanes-1) != 0 {
		panic(fmt.Errorf("vectorLanes invalid: %d is not a power of two multiple of 64", lanes))
	}
	ret := c.clone()
	ret.vectorLanes = lanes
	return ret
}

// WithStackArgumentBase implements LoweringConfig.WithStackArgumentBase
func (c *loweringConfig) WithStackArgumentBase(offset int64) LoweringConfig {
	if offset <= 0 || offset%16 != 0 {
		panic(fmt.Errorf("stackArgumentBase invalid: %d is not a positive multiple of 16", offset))
	}
	ret := c.clone()
	ret.stackArgumentBase = offset
	return ret
}

// WithDSOLocalSymbols implements LoweringConfig.WithDSOLocalSymbols
func (c *loweringConfig) WithDSOLocalSymbols(names ...string) LoweringConfig {
	ret := c.clone()
	for _, name := range names {
		decl := ret.decl(name)
		decl.DSOLocal = true
		ret.decls[name] = decl
	}
	return ret
}

// WithFunctionDecl implements LoweringConfig.WithFunctionDecl
func (c *loweringConfig) WithFunctionDecl(name string, firstParamPointeeSize int64) LoweringConfig {
	ret := c.clone()
	decl := ret.decl(name)
	decl.FirstParamPointeeSize = firstParamPointeeSize
	ret.decls[name] = decl
	return ret
}

func (c *loweringConfig) decl(name string) backend.FunctionDecl {
	if c.decls == nil {
		c.decls = declarations{}
	}
	decl, ok := c.decls[name]
	if !ok {
		decl.Name = name
	}
	return decl
}

// machineOptions converts this config into the options of the VE machine.
func (c *loweringConfig) machineOptions() ve.Options {
	opts := ve.Options{
		PositionIndependent: c.positionIndependent,
		VectorLanes:         c.vectorLanes,
		StackArgumentBase:   c.stackArgumentBase,
	}
	if len(c.decls) > 0 {
		opts.Symbols = c.decls
	}
	return opts
}

// NewMachine returns the VE lowering configured by config.
func NewMachine(config LoweringConfig) backend.Machine {
	return ve.NewBackend(config.(*loweringConfig).machineOptions())
}

// declarations implements backend.SymbolResolver over the declared functions.
type declarations map[string]backend.FunctionDecl

// Function implements backend.SymbolResolver.Function.
func (d declarations) Function(name string) (backend.FunctionDecl, bool) {
	decl, ok := d[name]
	return decl, ok
}
