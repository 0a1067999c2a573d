package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"

	"github.com/tetratelabs/velower"
	"github.com/tetratelabs/velower/internal/backend"
	"github.com/tetratelabs/velower/internal/backend/isa/ve"
	"github.com/tetratelabs/velower/internal/dag"
	"github.com/tetratelabs/velower/internal/version"
)

func main() {
	doMain(os.Stdout, os.Stderr, os.Exit)
}

// doMain is separated out for the purpose of unit testing.
func doMain(stdOut, stdErr io.Writer, exit func(code int)) {
	flag.CommandLine.SetOutput(stdErr)

	var help bool
	flag.BoolVar(&help, "h", false, "print usage")

	flag.Parse()

	if help || flag.NArg() == 0 {
		printUsage(stdErr)
		exit(0)
	}

	subCmd := flag.Arg(0)
	args := flag.Args()[1:]
	switch subCmd {
	case "abi":
		doABI(args, stdOut, stdErr, exit)
	case "buildvec":
		doBuildVec(args, stdOut, stdErr, exit)
	case "shuffle":
		doShuffle(args, stdOut, stdErr, exit)
	case "fence":
		doFence(args, stdOut, stdErr, exit)
	case "version":
		fmt.Fprintln(stdOut, version.GetVelowerVersion())
		exit(0)
	default:
		fmt.Fprintln(stdErr, "invalid command")
		printUsage(stdErr)
		exit(1)
	}
}

func doABI(args []string, stdOut, stdErr io.Writer, exit func(code int)) {
	flags := flag.NewFlagSet("abi", flag.ExitOnError)
	flags.SetOutput(stdErr)

	var help bool
	flags.BoolVar(&help, "h", false, "print usage")

	var vararg bool
	flags.BoolVar(&vararg, "vararg", false, "classify as a call to a variadic function")

	dump := dumpFlag(flags)

	_ = flags.Parse(args)

	if help {
		printSubcommandUsage(stdErr, flags, "abi <options> <comma-separated argument types>")
		exit(0)
	}

	if flags.NArg() < 1 {
		fmt.Fprintln(stdErr, "missing argument types")
		printSubcommandUsage(stdErr, flags, "abi <options> <comma-separated argument types>")
		exit(1)
	}

	var descs []backend.ValueDescriptor
	for _, s := range strings.Split(flags.Arg(0), ",") {
		typ, ok := parseType(s)
		if !ok {
			fmt.Fprintf(stdErr, "invalid type: %s\n", s)
			exit(1)
		}
		descs = append(descs, backend.ValueDescriptor{Type: typ})
	}

	placements, size, ok := ve.ClassifyArguments(descs, vararg)
	if !ok {
		if vararg {
			fmt.Fprintln(stdErr, "some arguments cannot be passed to a variadic function")
		} else {
			fmt.Fprintln(stdErr, "some arguments have neither a register nor a stack slot")
		}
		exit(1)
	}

	ri := ve.NewRegisterInfo()
	for i := range placements {
		p := &placements[i]
		fmt.Fprintf(stdOut, "%s: %s", descs[i].Type, formatLocation(ri, &p.Primary))
		if vararg {
			fmt.Fprintf(stdOut, ", %s", formatLocation(ri, &p.Memory))
		}
		fmt.Fprintln(stdOut)
	}
	fmt.Fprintf(stdOut, "argument area: %d bytes\n", size)
	if *dump {
		fmt.Fprint(stdOut, spew.Sdump(placements))
	}
	exit(0)
}

func formatLocation(ri backend.RegisterInfo, loc *backend.LocationAssignment) string {
	if loc.Kind == backend.LocationKindReg {
		return ri.RealRegName(loc.Reg)
	}
	return fmt.Sprintf("stack+%d", loc.Offset)
}

func doBuildVec(args []string, stdOut, stdErr io.Writer, exit func(code int)) {
	flags := flag.NewFlagSet("buildvec", flag.ExitOnError)
	flags.SetOutput(stdErr)

	var help bool
	flags.BoolVar(&help, "h", false, "print usage")

	var elem string
	flags.StringVar(&elem, "elem", "i64", "element type of the vector")

	dump := dumpFlag(flags)

	_ = flags.Parse(args)

	if help {
		printSubcommandUsage(stdErr, flags, "buildvec <options> <comma-separated lanes, _ for undefined>")
		exit(0)
	}

	if flags.NArg() < 1 {
		fmt.Fprintln(stdErr, "missing lanes")
		printSubcommandUsage(stdErr, flags, "buildvec <options> <comma-separated lanes, _ for undefined>")
		exit(1)
	}

	elemType, ok := parseType(elem)
	if !ok || elemType.IsVector() {
		fmt.Fprintf(stdErr, "invalid element type: %s\n", elem)
		exit(1)
	}

	lanes := strings.Split(flags.Arg(0), ",")
	typ := dag.VectorOf(elemType, len(lanes))
	b := dag.NewBuilder()
	values := make([]dag.Value, len(lanes))
	for i, s := range lanes {
		if s == "_" {
			values[i] = b.Undef(elemType)
			continue
		}
		v, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			fmt.Fprintf(stdErr, "invalid lane %d: %v\n", i, err)
			exit(1)
		}
		values[i] = b.Constant(elemType, v)
	}

	pattern := ve.ClassifyBuildVector(typ, values)
	fmt.Fprintf(stdOut, "%s: %s\n", typ, pattern)
	if *dump {
		fmt.Fprint(stdOut, spew.Sdump(pattern))
	}

	m := velower.NewMachine(velower.NewLoweringConfig().WithVectorLanes(vectorLanesFor(len(lanes))))
	m.StartFunction(b, nil)
	first := len(b.Nodes())
	n := b.AllocateNode().AsBuildVector(typ, values).Insert(b)
	lowered, _ := m.LowerOperation(n)
	for _, node := range b.Nodes()[first:] {
		if node != n {
			fmt.Fprintln(stdOut, node.Format())
		}
	}
	fmt.Fprintf(stdOut, "=> %s\n", lowered.Format())
	exit(0)
}

// vectorLanesFor returns the smallest valid lane count holding lanes.
func vectorLanesFor(lanes int) int {
	ret := 64
	for ret < lanes {
		ret <<= 1
	}
	return ret
}

func doShuffle(args []string, stdOut, stdErr io.Writer, exit func(code int)) {
	flags := flag.NewFlagSet("shuffle", flag.ExitOnError)
	flags.SetOutput(stdErr)

	var help bool
	flags.BoolVar(&help, "h", false, "print usage")

	var lanes int
	flags.IntVar(&lanes, "lanes", 0, "number of lanes of each source. Defaults to the length of the mask")

	dump := dumpFlag(flags)

	_ = flags.Parse(args)

	const usage = "shuffle <options> <comma-separated lanes like A0,B3,_>"
	if help {
		printSubcommandUsage(stdErr, flags, usage)
		exit(0)
	}

	if flags.NArg() < 1 {
		fmt.Fprintln(stdErr, "missing shuffle mask")
		printSubcommandUsage(stdErr, flags, usage)
		exit(1)
	}

	elems := strings.Split(flags.Arg(0), ",")
	if lanes == 0 {
		lanes = len(elems)
	}
	if lanes != len(elems) {
		fmt.Fprintf(stdErr, "mask has %d lanes but sources have %d\n", len(elems), lanes)
		exit(1)
	}

	mask := make([]int, len(elems))
	for i, s := range elems {
		idx, err := parseShuffleLane(s, lanes)
		if err != nil {
			fmt.Fprintf(stdErr, "invalid lane %d: %v\n", i, err)
			exit(1)
		}
		mask[i] = idx
	}

	plan, ok := ve.DecomposeShuffle(mask, lanes)
	if !ok {
		fmt.Fprintln(stdErr, "not a rotation and merge of the sources")
		exit(1)
	}
	fmt.Fprintln(stdOut, plan)
	if *dump {
		fmt.Fprint(stdOut, spew.Sdump(plan))
	}
	exit(0)
}

// parseShuffleLane parses A<i>, B<i> or _ into a shuffle mask element.
func parseShuffleLane(s string, lanes int) (int, error) {
	if s == "_" {
		return -1, nil
	}
	if len(s) < 2 {
		return 0, fmt.Errorf("%q is not A<lane>, B<lane> or _", s)
	}
	idx, err := strconv.Atoi(s[1:])
	if err != nil {
		return 0, err
	}
	if idx < 0 || idx >= lanes {
		return 0, fmt.Errorf("lane %d out of range [0, %d)", idx, lanes)
	}
	switch s[0] {
	case 'A', 'a':
		return idx, nil
	case 'B', 'b':
		return lanes + idx, nil
	default:
		return 0, fmt.Errorf("%q is not A<lane>, B<lane> or _", s)
	}
}

func doFence(args []string, stdOut, stdErr io.Writer, exit func(code int)) {
	flags := flag.NewFlagSet("fence", flag.ExitOnError)
	flags.SetOutput(stdErr)

	var help bool
	flags.BoolVar(&help, "h", false, "print usage")

	var orderingName string
	flags.StringVar(&orderingName, "ordering", "seq_cst",
		"memory ordering. Supported values: monotonic,acquire,release,acq_rel,seq_cst")

	var scopeName string
	flags.StringVar(&scopeName, "scope", "system", "synchronization scope. Supported values: system,singlethread")

	_ = flags.Parse(args)

	if help {
		printSubcommandUsage(stdErr, flags, "fence <options>")
		exit(0)
	}

	ordering, ok := parseOrdering(orderingName)
	if !ok {
		fmt.Fprintf(stdErr, "invalid ordering: %s\n", orderingName)
		exit(1)
	}

	var scope dag.SyncScope
	switch scopeName {
	case "system":
		scope = dag.SyncScopeSystem
	case "singlethread":
		scope = dag.SyncScopeSingleThread
	default:
		fmt.Fprintf(stdErr, "invalid scope: %s\n", scopeName)
		exit(1)
	}

	m := velower.NewMachine(velower.NewLoweringConfig())
	b := dag.NewBuilder()
	m.StartFunction(b, nil)
	n := b.AllocateNode().AsAtomicFence(b.EntryChain(), ordering, scope).Insert(b)
	lowered, _ := m.LowerOperation(n)

	fmt.Fprintf(stdOut, "fence %s %s: %s\n", ordering, scope, ve.FenceFor(ordering, scope))
	fmt.Fprintf(stdOut, "=> %s\n", lowered.Format())
	if ordering >= dag.AtomicOrderingMonotonic {
		fmt.Fprintf(stdOut, "atomic load: leading %s, trailing %s\n", m.LeadingFence(ordering, false), m.TrailingFence(ordering))
		fmt.Fprintf(stdOut, "atomic store: leading %s, trailing %s\n", m.LeadingFence(ordering, true), m.TrailingFence(ordering))
	}
	exit(0)
}

func parseOrdering(s string) (dag.AtomicOrdering, bool) {
	for o := dag.AtomicOrderingMonotonic; o <= dag.AtomicOrderingSequentiallyConsistent; o++ {
		if o.String() == s {
			return o, true
		}
	}
	return 0, false
}

var knownTypes = []dag.Type{
	dag.TypeI1, dag.TypeI8, dag.TypeI16, dag.TypeI32, dag.TypeI64, dag.TypeF32, dag.TypeF64, dag.TypeF128,
	dag.TypeV256I1, dag.TypeV512I1, dag.TypeV256I32, dag.TypeV256I64, dag.TypeV256F32, dag.TypeV256F64,
	dag.TypeV512I32, dag.TypeV512F32,
}

func parseType(s string) (dag.Type, bool) {
	for _, typ := range knownTypes {
		if typ.String() == s {
			return typ, true
		}
	}
	return dag.Type(0), false
}

func dumpFlag(flags *flag.FlagSet) *bool {
	return flags.Bool("dump", false, "dump the underlying structures")
}

func printUsage(stdErr io.Writer) {
	fmt.Fprintln(stdErr, "velower CLI")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Usage:\n  velower <command>")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Commands:")
	fmt.Fprintln(stdErr, "  abi\t\tPrints the location of each call argument")
	fmt.Fprintln(stdErr, "  buildvec\tClassifies and lowers the lanes of a vector")
	fmt.Fprintln(stdErr, "  shuffle\tDecomposes a shuffle mask into rotations and a merge")
	fmt.Fprintln(stdErr, "  fence\t\tPrints the fences of a memory ordering")
	fmt.Fprintln(stdErr, "  version\tDisplays the version of velower CLI")
}

func printSubcommandUsage(stdErr io.Writer, flags *flag.FlagSet, usage string) {
	fmt.Fprintln(stdErr, "velower CLI")
	fmt.Fprintln(stdErr)
	fmt.Fprintf(stdErr, "Usage:\n  velower %s\n", usage)
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Options:")
	flags.PrintDefaults()
}
