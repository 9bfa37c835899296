// main.go - CLI entry point for the RISC-V 32-bit core

/*
main.go is the thin adapter between the operating system and the core
package: it parses the command-line flags with cobra/pflag, assembles a
core.Options, loads a program image, runs the step loop (or the
differential-test driver) to completion, and maps the terminal result
onto a process exit code. Nothing architectural lives here - the core
package owns every invariant this file's flags merely configure.
*/

package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sys/unix"

	"github.com/zaynotley/riscv32core/core"
)

const (
	exitGood       = 0
	exitBad        = 1
	exitDivergence = 2
	exitInterrupt  = 130
	exitUsage      = 64
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run builds and executes the root command against args, writing normal
// output to out and diagnostics to errOut, and returns the process exit
// code. Split out from main so tests can drive it without os.Exit.
func run(args []string, out, errOut *os.File) int {
	var (
		memSpecs    []string
		devSpecs    []string
		elfPath     string
		binPath     string
		isaName     string
		initPCHex   string
		difftestRef string
		itrace      bool
		maxSteps    uint64
		showMemMap  bool
	)
	exitCode := exitGood

	root := &cobra.Command{
		Use:           "riscv32core",
		Short:         "A RISC-V 32-bit integer-core emulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			code, err := runMachine(machineConfig{
				memSpecs:    memSpecs,
				devSpecs:    devSpecs,
				elfPath:     elfPath,
				binPath:     binPath,
				isaName:     isaName,
				initPCHex:   initPCHex,
				difftestRef: difftestRef,
				itrace:      itrace,
				maxSteps:    maxSteps,
				showMemMap:  showMemMap,
			}, out, errOut)
			exitCode = code
			return err
		},
	}

	var flags *pflag.FlagSet = root.Flags()
	flags.StringArrayVar(&memSpecs, "mem", []string{"ram@0x80000000:0x88000000"},
		"memory region NAME@START:END (repeatable)")
	flags.StringArrayVar(&devSpecs, "dev", []string{"uart16550@0x10000000", "sifive_test_finisher@0x00100000"},
		"device NAME@START (repeatable)")
	flags.StringVar(&elfPath, "elf", "", "path to an ELF32 or flat-binary image")
	flags.StringVar(&binPath, "bin", "", "alias for --elf")
	flags.StringVar(&isaName, "isa", "riscv32i", "instruction set: riscv32i or riscv32im")
	flags.StringVar(&initPCHex, "init-pc", "", "initial program counter, hex (default 0x80000000, or the ELF entry point)")
	flags.StringVar(&difftestRef, "difftest", "", "run in lockstep against a reference implementation (remu)")
	flags.BoolVar(&itrace, "itrace", false, "emit a per-instruction disassembly trace")
	flags.Uint64Var(&maxSteps, "max-steps", 0, "bound an unbounded run at N retirements (0 = unbounded)")
	flags.BoolVar(&showMemMap, "mem-map", false, "print the bus memory map at startup")

	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		if exitCode == exitGood {
			exitCode = exitUsage
		}
		return exitCode
	}
	return exitCode
}

// usageError marks a CLI-level argument or load error, or a fatal run-time
// error such as an IoError, mapped to exit code 64 (EX_USAGE) rather than
// any architectural exit code.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

type machineConfig struct {
	memSpecs    []string
	devSpecs    []string
	elfPath     string
	binPath     string
	isaName     string
	initPCHex   string
	difftestRef string
	itrace      bool
	maxSteps    uint64
	showMemMap  bool
}

// runMachine assembles Options from cfg, loads the program image, and runs
// the machine (or the differential-test driver, if --difftest was given)
// to a terminal result, returning the process exit code.
func runMachine(cfg machineConfig, out, errOut *os.File) (int, error) {
	opts, initPCExplicit, err := buildOptions(cfg, out)
	if err != nil {
		return exitUsage, &usageError{err}
	}

	imagePath := cfg.elfPath
	if imagePath == "" {
		imagePath = cfg.binPath
	}

	cancel := &atomic.Bool{}
	stop := installSignalHandler(cancel)
	defer stop()

	if cfg.difftestRef != "" {
		return runDifftest(opts, cfg, imagePath, initPCExplicit, cancel, out, errOut)
	}

	state, err := core.NewState(opts, out)
	if err != nil {
		return exitUsage, &usageError{err}
	}
	if err := loadImage(state.Bus, imagePath, &opts, initPCExplicit); err != nil {
		return exitUsage, &usageError{err}
	}
	if !initPCExplicit {
		state.Reg.SetPC(opts.InitPC)
	}

	if cfg.showMemMap {
		printMemMap(out, state.Bus)
	}

	err = state.Run(cfg.maxSteps, cancel)
	switch {
	case err == nil:
		return exitGood, nil
	case err == core.Interrupted:
		return exitInterrupt, nil
	}
	if pe, ok := err.(*core.ProgramExit); ok {
		if pe.Code == core.ExitGood {
			return exitGood, nil
		}
		return exitBad, nil
	}
	return exitUsage, &usageError{err}
}

// runDifftest builds a device-under-test machine (the fast observer) and a
// reference machine (the MMIO-accurate observer) from identical Options
// apart from ObserverKind, loads the same image into both, and steps them
// in lockstep with a DiffDriver.
func runDifftest(opts core.Options, cfg machineConfig, imagePath string, initPCExplicit bool, cancel *atomic.Bool, out, errOut *os.File) (int, error) {
	if _, err := core.ParseDifftestRef(cfg.difftestRef); err != nil {
		return exitUsage, &usageError{err}
	}

	dutOpts, refOpts := opts, opts
	dutOpts.Observer = core.ObserverFast
	refOpts.Observer = core.ObserverMMIO

	dut, err := core.NewState(dutOpts, out)
	if err != nil {
		return exitUsage, &usageError{err}
	}
	ref, err := core.NewState(refOpts, out)
	if err != nil {
		return exitUsage, &usageError{err}
	}
	for _, s := range []*core.State{dut, ref} {
		if err := loadImage(s.Bus, imagePath, &opts, initPCExplicit); err != nil {
			return exitUsage, &usageError{err}
		}
		if !initPCExplicit {
			s.Reg.SetPC(opts.InitPC)
		}
	}

	driver := core.NewDiffDriver(dut, ref)
	div, err := driver.Run(cfg.maxSteps, cancel)
	if div != nil {
		fmt.Fprint(errOut, div.Report(dut, ref))
		return exitDivergence, nil
	}
	if err == nil {
		return exitGood, nil
	}
	if err == core.Interrupted {
		return exitInterrupt, nil
	}
	if pe, ok := err.(*core.ProgramExit); ok {
		if pe.Code == core.ExitGood {
			return exitGood, nil
		}
		return exitBad, nil
	}
	return exitUsage, &usageError{err}
}

// buildOptions turns the parsed flags into a core.Options, returning
// whether --init-pc was given explicitly (which takes priority over an
// ELF entry point).
func buildOptions(cfg machineConfig, out *os.File) (core.Options, bool, error) {
	regions, err := parseMemSpecs(cfg.memSpecs)
	if err != nil {
		return core.Options{}, false, err
	}
	devices, err := parseDevSpecs(cfg.devSpecs)
	if err != nil {
		return core.Options{}, false, err
	}
	isa, err := parseISA(cfg.isaName)
	if err != nil {
		return core.Options{}, false, err
	}

	opts := core.Options{
		InitPC:  core.DefaultInitPC,
		Regions: regions,
		Devices: devices,
		ISA:     isa,
	}

	initPCExplicit := cfg.initPCHex != ""
	if initPCExplicit {
		pc, err := parseHex32(cfg.initPCHex)
		if err != nil {
			return core.Options{}, false, fmt.Errorf("--init-pc: %w", err)
		}
		opts.InitPC = pc
	}

	if cfg.itrace {
		opts.Tracer = &core.DisasmTracer{Out: out}
	}

	return opts, initPCExplicit, nil
}

// parseMemSpecs parses a list of "NAME@START:END" region specs.
func parseMemSpecs(specs []string) ([]core.MemRegionSpec, error) {
	out := make([]core.MemRegionSpec, 0, len(specs))
	for _, s := range specs {
		name, rest, ok := strings.Cut(s, "@")
		if !ok {
			return nil, fmt.Errorf("--mem %q: expected NAME@START:END", s)
		}
		startStr, endStr, ok := strings.Cut(rest, ":")
		if !ok {
			return nil, fmt.Errorf("--mem %q: expected NAME@START:END", s)
		}
		start, err := parseHex32(startStr)
		if err != nil {
			return nil, fmt.Errorf("--mem %q: start: %w", s, err)
		}
		end, err := parseHex32(endStr)
		if err != nil {
			return nil, fmt.Errorf("--mem %q: end: %w", s, err)
		}
		out = append(out, core.MemRegionSpec{Name: name, Base: start, End: end})
	}
	return out, nil
}

// parseDevSpecs parses a list of "NAME@START" device specs.
func parseDevSpecs(specs []string) ([]core.DeviceSpec, error) {
	out := make([]core.DeviceSpec, 0, len(specs))
	for _, s := range specs {
		name, startStr, ok := strings.Cut(s, "@")
		if !ok {
			return nil, fmt.Errorf("--dev %q: expected NAME@START", s)
		}
		start, err := parseHex32(startStr)
		if err != nil {
			return nil, fmt.Errorf("--dev %q: start: %w", s, err)
		}
		out = append(out, core.DeviceSpec{Name: name, Base: start})
	}
	return out, nil
}

func parseISA(name string) (core.ISA, error) {
	switch strings.ToLower(name) {
	case "riscv32i":
		return core.ISARV32I, nil
	case "riscv32im":
		return core.ISARV32IM, nil
	default:
		return 0, fmt.Errorf("--isa %q: expected riscv32i or riscv32im", name)
	}
}

// parseHex32 accepts a 0x-prefixed or bare hexadecimal literal.
func parseHex32(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X"), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid hex value %q", s)
	}
	return uint32(v), nil
}

// loadImage loads path into bus: an ELF32 image if its magic matches,
// otherwise a flat binary blitted at opts.InitPC. If no path is given, the
// built-in test image is loaded instead. When the image is ELF and
// --init-pc was not given explicitly, the ELF entry point becomes the
// machine's PC.
func loadImage(bus *core.Bus, path string, opts *core.Options, initPCExplicit bool) error {
	if path == "" {
		return core.LoadFlat(bus, opts.InitPC, core.BuiltinImage())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if len(data) >= 4 && data[0] == 0x7F && data[1] == 'E' && data[2] == 'L' && data[3] == 'F' {
		entry, err := core.LoadELF32(bus, data)
		if err != nil {
			return err
		}
		if !initPCExplicit {
			opts.InitPC = entry
		}
		return nil
	}
	return core.LoadFlat(bus, opts.InitPC, data)
}

func printMemMap(out *os.File, bus *core.Bus) {
	fmt.Fprintln(out, "memory map:")
	for _, e := range bus.MemMap() {
		fmt.Fprintf(out, "  %-24s [0x%08x, 0x%08x)\n", e.Name, e.Base, e.End)
	}
}

// installSignalHandler arms SIGINT/SIGTERM to set cancel rather than kill
// the process outright, so the step loop observes it cooperatively between
// retirements and the CLI can still report exit code 130.
func installSignalHandler(cancel *atomic.Bool) func() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, unix.SIGTERM)
	done := make(chan struct{})
	go func() {
		select {
		case <-ch:
			cancel.Store(true)
		case <-done:
		}
	}()
	return func() {
		close(done)
		signal.Stop(ch)
	}
}
