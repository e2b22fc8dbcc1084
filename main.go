// Copyright (C) 2025 Logical Mechanism LLC
// SPDX-License-Identifier: GPL-3.0-only

// main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

const usage = `usage: paircheck <command> [flags]

commands:
  check        derive the points and check the pairing equation (default)
  constants    print the hardcoded uint256 constants
  solidity     render a Solidity verifier contract for the scenario
  calldata     print (and optionally execute) the ecPairing calldata
  setup        Groth16 setup for the scalar identity circuit
  prove        prove the scalar identity
  verify       verify vk.bin / proof.bin / witness.bin
  reexport     regenerate vk.json / proof.json / public.json from the binaries
  verify-json  check the Groth16 equation from the JSON files
  ceremony     init | contribute | verify | finalize an MPC setup
  watch        re-run check whenever the scenario file changes
`

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		return cmdCheck(nil, stdout, stderr)
	}

	switch args[0] {
	case "check":
		return cmdCheck(args[1:], stdout, stderr)
	case "constants":
		return cmdConstants(args[1:], stdout, stderr)
	case "solidity":
		return cmdSolidity(args[1:], stdout, stderr)
	case "calldata":
		return cmdCalldata(args[1:], stdout, stderr)
	case "setup":
		return cmdSetup(args[1:], stdout, stderr)
	case "prove":
		return cmdProve(args[1:], stdout, stderr)
	case "verify":
		return cmdVerify(args[1:], stdout, stderr)
	case "reexport":
		return cmdReexport(args[1:], stdout, stderr)
	case "verify-json":
		return cmdVerifyJSON(args[1:], stdout, stderr)
	case "ceremony":
		return cmdCeremony(args[1:], stdout, stderr)
	case "watch":
		return cmdWatch(args[1:], stdout, stderr)
	case "help", "-h", "-help", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "error: unknown command %q\n", args[0])
		fmt.Fprint(stderr, usage)
		return 2
	}
}

// ---------- shared scenario flags ----------

type scenarioFlags struct {
	config   string
	sets     []string
	inputs   string
	strategy string
	contract string
	verbose  bool
}

func addScenarioFlags(fs *flag.FlagSet) *scenarioFlags {
	f := new(scenarioFlags)
	fs.StringVar(&f.config, "config", "", "scenario file (yaml, json or toml)")
	fs.Func("set", "override a scalar, NAME=VALUE (repeatable)", func(s string) error {
		f.sets = append(f.sets, s)
		return nil
	})
	fs.StringVar(&f.inputs, "inputs", "", "public inputs x1,x2,x3 (must sum to E)")
	fs.StringVar(&f.strategy, "strategy", "", "pairing strategy: product, miller or check")
	fs.StringVar(&f.contract, "contract", "", "Solidity contract name")
	fs.BoolVar(&f.verbose, "v", false, "debug logging")
	return f
}

// scenario layers the flags over the config file and environment.
func (f *scenarioFlags) scenario() (Scenario, error) {
	sc, err := LoadScenario(f.config)
	if err != nil {
		return Scenario{}, err
	}
	return f.apply(sc)
}

// apply overrides sc with the command line values and validates the result.
func (f *scenarioFlags) apply(sc Scenario) (Scenario, error) {
	for _, s := range f.sets {
		name, k, err := parseAssignment(s)
		if err != nil {
			return Scenario{}, fmt.Errorf("-set: %w", err)
		}
		if err := sc.Scalars.Set(name, k); err != nil {
			return Scenario{}, fmt.Errorf("-set: %w", err)
		}
	}
	if f.inputs != "" {
		in, err := parseInputs([]string{f.inputs})
		if err != nil {
			return Scenario{}, fmt.Errorf("-inputs: %w", err)
		}
		sc.Inputs = in
	}
	if f.strategy != "" {
		st, err := parseStrategy(f.strategy)
		if err != nil {
			return Scenario{}, fmt.Errorf("-strategy: %w", err)
		}
		sc.Strategy = st
	}
	if f.contract != "" {
		sc.Contract = f.contract
	}
	if err := sc.Validate(); err != nil {
		return Scenario{}, err
	}
	return sc, nil
}

// parseScenario parses args with fs and resolves the scenario. On failure it
// has already reported to stderr and returns the exit code.
func parseScenario(fs *flag.FlagSet, sf *scenarioFlags, args []string, stderr io.Writer) (Scenario, zerolog.Logger, int) {
	if err := fs.Parse(args); err != nil {
		return Scenario{}, zerolog.Nop(), 2
	}
	if extraArgs(fs, stderr) {
		return Scenario{}, zerolog.Nop(), 2
	}
	lg := newLogger(stderr, sf.verbose)
	sc, err := sf.scenario()
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return Scenario{}, lg, 2
	}
	return sc, lg, 0
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// extraArgs reports positional arguments left after flag parsing.
func extraArgs(fs *flag.FlagSet, stderr io.Writer) bool {
	if fs.NArg() == 0 {
		return false
	}
	fmt.Fprintf(stderr, "error: unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
	return true
}

// ---------- harness commands ----------

func cmdCheck(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("check", stderr)
	sf := addScenarioFlags(fs)
	var opts ReportOptions
	fs.BoolVar(&opts.Debug, "debug", false, "print per-term GT fingerprints and compare strategies")
	fs.BoolVar(&opts.CrossCheck, "crosscheck", false, "cross-check with cloudflare bn256 and the EVM precompiles")
	fs.BoolVar(&opts.InCircuit, "in-circuit", false, "also solve the emulated pairing circuit (slow)")

	sc, lg, code := parseScenario(fs, sf, args, stderr)
	if code != 0 {
		return code
	}
	return checkAndReport(sc, opts, lg, stdout, stderr)
}

func checkAndReport(sc Scenario, opts ReportOptions, lg zerolog.Logger, stdout, stderr io.Writer) int {
	r, err := Evaluate(sc, opts, lg)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	if err := WriteReport(stdout, r); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	if !r.OK() {
		return 1
	}
	return 0
}

func cmdConstants(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("constants", stderr)
	sf := addScenarioFlags(fs)
	sc, _, code := parseScenario(fs, sf, args, stderr)
	if code != 0 {
		return code
	}
	pts, err := DerivePoints(sc.Scalars)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	if err := RenderConstants(stdout, pts, sc.Scalars); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}

func cmdSolidity(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("solidity", stderr)
	sf := addScenarioFlags(fs)
	var outPath string
	fs.StringVar(&outPath, "out", "", "write the contract here instead of stdout")
	sc, lg, code := parseScenario(fs, sf, args, stderr)
	if code != 0 {
		return code
	}
	pts, err := DerivePoints(sc.Scalars)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}

	w := stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			fmt.Fprintln(stderr, "error:", err)
			return 1
		}
		defer f.Close()
		w = f
	}
	if err := RenderContract(w, sc, pts); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	if outPath != "" {
		lg.Info().Str("path", outPath).Str("contract", sc.Contract).Msg("contract written")
	}
	return 0
}

func cmdCalldata(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("calldata", stderr)
	sf := addScenarioFlags(fs)
	var exec bool
	fs.BoolVar(&exec, "exec", false, "run the calldata on the ecPairing precompile")
	sc, lg, code := parseScenario(fs, sf, args, stderr)
	if code != 0 {
		return code
	}
	pts, err := DerivePoints(sc.Scalars)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	fmt.Fprintln(stdout, hexutil.Encode(pairingCalldata(pts)))

	if !exec {
		return 0
	}
	res, err := RunPairingPrecompile(pts)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	lg.Info().
		Str("output", hexutil.Encode(res.Output)).
		Uint64("gas", res.Gas).
		Bool("success", res.PairingSucceeded()).
		Msg("ecPairing precompile")
	if !res.PairingSucceeded() {
		return 1
	}
	return 0
}

// ---------- groth16 commands ----------

func cmdSetup(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("setup", stderr)
	sf := addScenarioFlags(fs)
	var dir string
	var force bool
	fs.StringVar(&dir, "dir", "setup", "output directory for ccs.bin / pk.bin / vk.bin")
	fs.BoolVar(&force, "force", false, "overwrite an existing setup")
	sc, lg, code := parseScenario(fs, sf, args, stderr)
	if code != 0 {
		return code
	}

	wrote, err := SetupIdentityCircuit(dir, sc, force)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	if !wrote {
		lg.Info().Str("dir", dir).Msg("setup files exist, skipping (use -force to overwrite)")
		return 0
	}
	fmt.Fprintf(stdout, "setup written to %s\n", dir)
	return 0
}

func cmdProve(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("prove", stderr)
	sf := addScenarioFlags(fs)
	var setupDir, outDir string
	var fresh, noVerify bool
	fs.StringVar(&setupDir, "setup", "setup", "directory with ccs.bin / pk.bin / vk.bin")
	fs.StringVar(&outDir, "out", "out", "output directory for vk.json / proof.json / public.json")
	fs.BoolVar(&fresh, "fresh", false, "run a throwaway setup instead of loading one")
	fs.BoolVar(&noVerify, "no-verify", false, "skip verifying the proof after proving")
	sc, lg, code := parseScenario(fs, sf, args, stderr)
	if code != 0 {
		return code
	}

	var err error
	if fresh {
		err = ProveAndVerifyIdentity(sc, outDir)
	} else {
		err = ProveIdentityFromSetup(setupDir, outDir, sc, !noVerify)
	}
	if err != nil {
		fmt.Fprintln(stderr, "FAIL:", err)
		return 1
	}
	lg.Debug().Str("out", outDir).Msg("artefacts written")
	fmt.Fprintln(stdout, "SUCCESS: proof verified (sA*sB == sC*sD + (x1+x2+x3)*sF + sG*sH)")
	return 0
}

func cmdVerify(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("verify", stderr)
	var dir string
	fs.StringVar(&dir, "dir", "out", "directory with vk.bin / proof.bin / witness.bin")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if extraArgs(fs, stderr) {
		return 2
	}
	if err := VerifyFromFiles(dir); err != nil {
		fmt.Fprintln(stderr, "FAIL:", err)
		return 1
	}
	fmt.Fprintln(stdout, "SUCCESS: proof verified")
	return 0
}

func cmdReexport(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("reexport", stderr)
	var dir string
	fs.StringVar(&dir, "dir", "out", "directory with vk.bin / proof.bin / witness.bin")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if extraArgs(fs, stderr) {
		return 2
	}
	if err := ReExportJSON(dir); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	fmt.Fprintf(stdout, "JSON re-exported to %s\n", dir)
	return 0
}

func cmdVerifyJSON(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("verify-json", stderr)
	var dir, strategy string
	fs.StringVar(&dir, "dir", "out", "directory with vk.json / proof.json / public.json")
	fs.StringVar(&strategy, "strategy", string(StrategyProduct), "pairing strategy: product, miller or check")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if extraArgs(fs, stderr) {
		return 2
	}
	st, err := parseStrategy(strategy)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 2
	}
	ok, err := VerifyArtifactsJSON(dir, st)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	fmt.Fprintf(stdout, "Groth16 pairing equation result: %t\n", ok)
	if !ok {
		return 1
	}
	return 0
}

func cmdCeremony(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "error: ceremony needs a step: init, contribute, verify or finalize")
		return 2
	}
	step := args[0]

	fs := newFlagSet("ceremony "+step, stderr)
	var dir, beacon string
	var phase int
	var force bool
	fs.StringVar(&dir, "dir", "ceremony", "ceremony directory")
	fs.IntVar(&phase, "phase", 1, "phase (1 or 2)")
	fs.StringVar(&beacon, "beacon", "", "public randomness to seal the phase (0x hex or text)")
	fs.BoolVar(&force, "force", false, "re-initialize an existing ceremony")

	var sf *scenarioFlags
	if step == "init" {
		sf = addScenarioFlags(fs)
	}
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	if extraArgs(fs, stderr) {
		return 2
	}
	if phase != 1 && phase != 2 {
		fmt.Fprintf(stderr, "error: -phase must be 1 or 2, got %d\n", phase)
		return 2
	}

	switch step {
	case "init":
		sc, err := sf.scenario()
		if err != nil {
			fmt.Fprintln(stderr, "error:", err)
			return 2
		}
		nbConstraints, n, err := CeremonyInit(dir, sc, force)
		if err != nil {
			fmt.Fprintln(stderr, "error:", err)
			return 1
		}
		fmt.Fprintf(stdout, "ceremony initialized in %s\n", dir)
		fmt.Fprintf(stdout, "  constraints: %d\n", nbConstraints)
		fmt.Fprintf(stdout, "  domain size: %d\n", n)
		return 0

	case "contribute":
		contribute := CeremonyContributePhase1
		if phase == 2 {
			contribute = CeremonyContributePhase2
		}
		idx, hash, err := contribute(dir)
		if err != nil {
			fmt.Fprintln(stderr, "error:", err)
			return 1
		}
		fmt.Fprintf(stdout, "phase %d contribution %d: %s\n", phase, idx, hash)
		return 0

	case "verify":
		verify := CeremonyVerifyPhase1
		if phase == 2 {
			verify = CeremonyVerifyPhase2
		}
		n, err := verify(dir)
		if err != nil {
			fmt.Fprintln(stderr, "FAIL:", err)
			return 1
		}
		fmt.Fprintf(stdout, "phase %d: %d contributions verified\n", phase, n)
		return 0

	case "finalize":
		if beacon == "" {
			fmt.Fprintln(stderr, "error: -beacon is required")
			return 2
		}
		b, err := parseBeacon(beacon)
		if err != nil {
			fmt.Fprintln(stderr, "error:", err)
			return 2
		}
		finalize := CeremonyFinalizePhase1
		if phase == 2 {
			finalize = CeremonyFinalizePhase2
		}
		if err := finalize(dir, b); err != nil {
			fmt.Fprintln(stderr, "error:", err)
			return 1
		}
		fmt.Fprintf(stdout, "phase %d finalized in %s\n", phase, dir)
		return 0
	}

	fmt.Fprintf(stderr, "error: unknown ceremony step %q\n", step)
	return 2
}

// parseBeacon decodes 0x-prefixed hex, otherwise takes the text bytes.
func parseBeacon(s string) ([]byte, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		b, err := hexutil.Decode("0x" + s[2:])
		if err != nil {
			return nil, fmt.Errorf("beacon: %w", err)
		}
		return b, nil
	}
	return []byte(s), nil
}

// ---------- watch ----------

// watchContext bounds the watch loop; it ends on SIGINT or SIGTERM.
var watchContext = func() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func cmdWatch(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("watch", stderr)
	sf := addScenarioFlags(fs)
	var opts ReportOptions
	fs.BoolVar(&opts.Debug, "debug", false, "print per-term GT fingerprints and compare strategies")
	fs.BoolVar(&opts.CrossCheck, "crosscheck", false, "cross-check with cloudflare bn256 and the EVM precompiles")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if extraArgs(fs, stderr) {
		return 2
	}
	if sf.config == "" {
		fmt.Fprintln(stderr, "error: -config is required")
		return 2
	}
	lg := newLogger(stderr, sf.verbose)

	sc, err := sf.scenario()
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 2
	}
	checkAndReport(sc, opts, lg, stdout, stderr)

	ctx, stop := watchContext()
	defer stop()

	lg.Info().Str("config", sf.config).Msg("watching for changes")
	err = WatchScenario(ctx, sf.config, func(sc Scenario, err error) {
		if err == nil {
			sc, err = sf.apply(sc)
		}
		if err != nil {
			lg.Error().Err(err).Msg("scenario rejected")
			return
		}
		fmt.Fprintln(stdout)
		checkAndReport(sc, opts, lg, stdout, stderr)
	})
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}
