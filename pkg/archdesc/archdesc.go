// Package archdesc describes the target architectures the IR can be
// sized and aligned against: which integer type has the same width as
// a pointer, and how each primitive width is aligned. The C-primitive
// to IR-Type mapping (irtypes.PrimType) and alignment/layout queries
// (irtypes.Alignment, irtypes.SizeBits, irtypes.PadStruct) both take a
// *Desc as a parameter rather than living as methods here, since
// irtypes already imports this package and a Desc method returning an
// irtypes.Type would import it back.
//
// Each Desc is a small, immutable record consulted by everything
// downstream, the same shape as a C compiler's own target-description
// tables, but holding IR-sizing facts rather than C surface-syntax facts.
package archdesc

// PtrBits is the only architecture-dependent scalar width; every other
// primitive is self-aligned on the four architectures below.
type Desc struct {
	Name    string // canonical architecture name, e.g. "x86_64"
	PtrBits uint64 // width of a pointer, and of the "long" C type
}

// Built-in descriptors for the four supported architectures.
var (
	X86    = &Desc{Name: "x86", PtrBits: 32}
	X86_64 = &Desc{Name: "x86_64", PtrBits: 64}
	ARM32  = &Desc{Name: "arm32", PtrBits: 32}
	ARM64  = &Desc{Name: "arm64", PtrBits: 64}
)

// byteBits is fixed across every supported architecture.
const byteBits = 8

// aliases maps the architecture-name component of a target triple (the
// text before the first '-') to a built-in descriptor.
var aliases = map[string]*Desc{
	"i386":    X86,
	"x86":     X86,
	"amd64":   X86_64,
	"x86_64":  X86_64,
	"arm32":   ARM32,
	"aarch32": ARM32,
	"arm64":   ARM64,
	"aarch64": ARM64,
}

// Resolve selects a built-in descriptor from a target triple such as
// "x86_64-unknown-linux-gnu", matching on the architecture name before
// the first '-'. It reports false if no built-in matches.
func Resolve(triple string) (*Desc, bool) {
	name := triple
	for i, r := range triple {
		if r == '-' {
			name = triple[:i]
			break
		}
	}
	d, ok := aliases[name]
	return d, ok
}

// ByteBits returns the number of bits in a byte on this architecture.
// It is fixed at 8 for every descriptor this package defines, but is
// exposed as a method (rather than a bare constant) so callers compute
// sizes through the descriptor, per the component's contract.
func (d *Desc) ByteBits() uint64 {
	return byteBits
}

// PtrIntBits returns the width, in bits, of the integer type with the
// same width as a pointer ("long" on every one of the four supported
// architectures: 32-bit on arm32/x86, 64-bit on arm64/x86_64).
func (d *Desc) PtrIntBits() uint64 {
	return d.PtrBits
}
