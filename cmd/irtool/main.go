// Command irtool exercises the ir/irtypes/irvalidate/globaltopo/cfg/ssa/
// irfmt packages against a YAML-described module, dumping each stage's
// intermediate representation from a single CLI.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/gocc-ir/ssair/pkg/archdesc"
	"github.com/gocc-ir/ssair/pkg/cfg"
	"github.com/gocc-ir/ssair/pkg/globaltopo"
	"github.com/gocc-ir/ssair/pkg/ir"
	"github.com/gocc-ir/ssair/pkg/irfile"
	"github.com/gocc-ir/ssair/pkg/irfmt"
	"github.com/gocc-ir/ssair/pkg/irtypes"
	"github.com/gocc-ir/ssair/pkg/irvalidate"
	"github.com/gocc-ir/ssair/pkg/ssa"
)

var version = "0.1.0"

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "irtool",
		Short:         "irtool inspects a YAML-described IR module",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.AddCommand(
		newValidateCmd(out, errOut),
		newSortGlobalsCmd(out, errOut),
		newCFGCmd(out, errOut),
		newSSACmd(out, errOut),
		newFmtCmd(out, errOut),
		newStructLayoutCmd(out, errOut),
	)
	return rootCmd
}

func loadModule(filename string) (*ir.Module, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filename, err)
	}
	m, err := irfile.Load(data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", filename, err)
	}
	return m, nil
}

func findFunc(m *ir.Module, name string) (*ir.Function, error) {
	if name == "" {
		if len(m.Funcs) == 0 {
			return nil, fmt.Errorf("module %s has no functions", m.Name)
		}
		return &m.Funcs[0], nil
	}
	fn := m.FuncByName(name)
	if fn == nil {
		return nil, fmt.Errorf("no function named %q in module %s", name, m.Name)
	}
	return fn, nil
}

func newValidateCmd(out, errOut io.Writer) *cobra.Command {
	var fnName string
	cmd := &cobra.Command{
		Use:   "validate <module.yaml>",
		Short: "run the well-formedness validator over one function",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadModule(args[0])
			if err != nil {
				return wrapStage(errOut, "validate", err)
			}
			fn, err := findFunc(m, fnName)
			if err != nil {
				return wrapStage(errOut, "validate", err)
			}
			diags := irvalidate.Validate(m, fn)
			if len(diags) == 0 {
				fmt.Fprintln(out, "ok")
				return nil
			}
			for _, d := range diags {
				fmt.Fprintln(out, d.Error())
			}
			return fmt.Errorf("%d diagnostic(s)", len(diags))
		},
	}
	cmd.Flags().StringVar(&fnName, "fn", "", "function to validate (default: first in module)")
	return cmd
}

func newSortGlobalsCmd(out, errOut io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "sort-globals <module.yaml>",
		Short: "topologically sort a module's globals and print them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadModule(args[0])
			if err != nil {
				return wrapStage(errOut, "sort-globals", err)
			}
			globaltopo.Sort(m)
			for _, g := range m.Globals {
				printer := irfmt.NewPrinter(out)
				printer.PrintModule(&ir.Module{Name: m.Name, Structs: m.Structs, Globals: []ir.Global{g}})
			}
			return nil
		},
	}
}

func buildAndMaybePrune(fn *ir.Function, prune bool) *cfg.Graph {
	g := cfg.Build(fn)
	if prune {
		cfg.Prune(g)
	}
	return g
}

func newCFGCmd(out, errOut io.Writer) *cobra.Command {
	var fnName string
	var prune bool
	var linearize bool
	cmd := &cobra.Command{
		Use:   "cfg <module.yaml>",
		Short: "build (and optionally prune/linearize) a function's CFG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadModule(args[0])
			if err != nil {
				return wrapStage(errOut, "cfg", err)
			}
			fn, err := findFunc(m, fnName)
			if err != nil {
				return wrapStage(errOut, "cfg", err)
			}
			g := buildAndMaybePrune(fn, prune)
			if linearize {
				for _, instr := range cfg.Linearize(g) {
					fmt.Fprintln(out, irfmt.InstrString(instr))
				}
				return nil
			}
			printGraph(out, g)
			return nil
		},
	}
	cmd.Flags().StringVar(&fnName, "fn", "", "function to build a CFG for (default: first in module)")
	cmd.Flags().BoolVar(&prune, "prune", false, "remove unreachable blocks before printing")
	cmd.Flags().BoolVar(&linearize, "linearize", false, "print the linearized instruction stream instead of the block graph")
	return cmd
}

func printGraph(out io.Writer, g *cfg.Graph) {
	for _, b := range g.Blocks {
		fmt.Fprintf(out, "block %d", b.ID)
		if b.Label != "" {
			fmt.Fprintf(out, " (%s)", b.Label)
		}
		if b.ID == g.Entry {
			fmt.Fprint(out, " [entry]")
		}
		fmt.Fprintln(out, ":")
		for _, instr := range b.Instrs {
			fmt.Fprintf(out, "  %s\n", irfmt.InstrString(instr))
		}
		fmt.Fprintf(out, "  preds=%v succs=%v fallthrough=%v\n", b.Preds, b.Succs, b.HasFallThrough())
	}
}

func newSSACmd(out, errOut io.Writer) *cobra.Command {
	var fnName string
	cmd := &cobra.Command{
		Use:   "ssa <module.yaml>",
		Short: "build a function's SSA form and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadModule(args[0])
			if err != nil {
				return wrapStage(errOut, "ssa", err)
			}
			fn, err := findFunc(m, fnName)
			if err != nil {
				return wrapStage(errOut, "ssa", err)
			}
			g := cfg.Build(fn)
			cfg.Prune(g)
			sg := ssa.Build(g, fn)
			printSSAGraph(out, sg)
			return nil
		},
	}
	cmd.Flags().StringVar(&fnName, "fn", "", "function to build SSA for (default: first in module)")
	return cmd
}

func printSSAGraph(out io.Writer, g *ssa.Graph) {
	for _, b := range g.Blocks {
		fmt.Fprintf(out, "block %d", b.ID)
		if b.ID == g.Entry {
			fmt.Fprint(out, " [entry]")
		}
		fmt.Fprintln(out, ":")
		for _, phi := range b.Phis {
			fmt.Fprintf(out, "  %s = phi", phi.Result.Name)
			for i, op := range phi.Operands {
				if i > 0 {
					fmt.Fprint(out, ",")
				}
				fmt.Fprintf(out, " [%s, %d]", op.Value.Name, op.Pred)
			}
			fmt.Fprintln(out)
		}
		for _, instr := range b.Instrs {
			fmt.Fprintf(out, "  %s\n", irfmt.InstrString(instr))
		}
	}
}

func newFmtCmd(out, errOut io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "fmt <module.yaml>",
		Short: "pretty-print a module in the textual IR grammar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadModule(args[0])
			if err != nil {
				return wrapStage(errOut, "fmt", err)
			}
			irfmt.FormatModule(out, m)
			return nil
		},
	}
}

func newStructLayoutCmd(out, errOut io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "structlayout <module.yaml> <struct-id>",
		Short: "print a struct or union's field layout, size, and alignment on the module's architecture",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadModule(args[0])
			if err != nil {
				return wrapStage(errOut, "structlayout", err)
			}
			st, ok := m.Structs.Lookup(args[1])
			if !ok {
				return wrapStage(errOut, "structlayout", fmt.Errorf("no struct or union %q in module %s", args[1], m.Name))
			}
			printStructLayout(out, m.Arch, st)
			return nil
		},
	}
}

func printStructLayout(out io.Writer, arch *archdesc.Desc, st *irtypes.StructOrUnion) {
	kind := "struct"
	if st.IsUnion {
		kind = "union"
	}
	size := irtypes.SizeBytes(arch, st)
	if !st.IsUnion {
		size = irtypes.SizeBytes(arch, irtypes.PadStruct(arch, st))
	}
	fmt.Fprintf(out, "%s.%s: size=%d align=%d\n", kind, st.ID,
		size, irtypes.Alignment(arch, st))

	if st.IsUnion {
		for _, f := range st.Fields {
			fmt.Fprintf(out, "  %s %s\n", irfmt.TypeString(f.Type), f.Name)
		}
		return
	}
	var offset uint64
	for _, f := range irtypes.PadStruct(arch, st).Fields {
		fmt.Fprintf(out, "  +%-4d %s %s\n", offset, irfmt.TypeString(f.Type), f.Name)
		offset += irtypes.SizeBytes(arch, f.Type)
	}
}

func wrapStage(errOut io.Writer, stage string, err error) error {
	fmt.Fprintf(errOut, "irtool: %s error: %v\n", stage, err)
	return err
}
