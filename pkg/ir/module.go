package ir

import (
	"github.com/gocc-ir/ssair/pkg/archdesc"
	"github.com/gocc-ir/ssair/pkg/irtypes"
)

// Function is a flat-form IR function: a name, its signature, parameter
// variables, a variadic flag, and an ordered instruction sequence.
type Function struct {
	Name     string
	Sig      irtypes.Function
	Params   []Var
	Variadic bool
	Body     []Instruction
}

// Append adds instr to the end of the function body.
func (f *Function) Append(instr Instruction) {
	f.Body = append(f.Body, instr)
}

// Global is a module-level variable: a pointer-typed name, whether it
// has an initializer, and the initializer itself when it does.
type Global struct {
	Name        string
	Ty          irtypes.Ptr // type of the global is always Ptr<T>
	Initialized bool
	Init        Const
}

// Module owns every Global and Function of a translation unit, plus the
// struct/union registry and the architecture it was built against.
// Global order is semantically meaningful: a definition must precede
// its first use (globaltopo.Sort restores this when the translator
// didn't emit globals in dependency order).
type Module struct {
	Name    string
	Arch    *archdesc.Desc
	Structs *irtypes.Registry
	Globals []Global
	Funcs   []Function
}

// NewModule creates an empty module with an initialized struct registry,
// defaulting Arch to X86_64. Callers that need a different target
// architecture assign m.Arch directly (irfile.Build does this when a
// document names one).
func NewModule(name string) *Module {
	return &Module{Name: name, Arch: archdesc.X86_64, Structs: irtypes.NewRegistry()}
}

// AppendGlobal adds g to the module.
func (m *Module) AppendGlobal(g Global) {
	m.Globals = append(m.Globals, g)
}

// AppendFunc adds fn to the module.
func (m *Module) AppendFunc(fn Function) {
	m.Funcs = append(m.Funcs, fn)
}

// FuncByName returns a pointer into m.Funcs for the named function, or
// nil if not found.
func (m *Module) FuncByName(name string) *Function {
	for i := range m.Funcs {
		if m.Funcs[i].Name == name {
			return &m.Funcs[i]
		}
	}
	return nil
}
