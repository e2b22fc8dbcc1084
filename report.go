// Copyright (C) 2025 Logical Mechanism LLC
// SPDX-License-Identifier: GPL-3.0-only

// report.go

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/rs/zerolog"
)

// ReportOptions selects the optional sections of the check report.
type ReportOptions struct {
	Debug      bool // per-term GT fingerprints, strategy agreement
	CrossCheck bool // cloudflare bn256 and EVM precompiles
	InCircuit  bool // emulated pairing check in a gnark circuit
}

// Report holds everything the check command prints.
type Report struct {
	Scenario      Scenario
	Points        Points
	Result        CheckResult
	NonDegenerate bool

	Debug           bool
	Terms           []string
	StrategiesAgree bool

	Cross     *CrossCheck
	EVMPoints []EVMPointCheck
	EVM       *PrecompileResult

	InCircuit    bool
	InCircuitErr error
}

// OK reports whether the equation holds and every optional check agreed.
func (r Report) OK() bool {
	if !r.Result.Holds {
		return false
	}
	if r.Debug && !r.StrategiesAgree {
		return false
	}
	if r.Cross != nil && !r.Cross.OK(r.Result.Holds) {
		return false
	}
	for _, c := range r.EVMPoints {
		if !c.Match {
			return false
		}
	}
	if r.EVM != nil && !r.EVM.PairingSucceeded() {
		return false
	}
	if r.InCircuit && r.InCircuitErr != nil {
		return false
	}
	return true
}

// Evaluate derives the points of sc and runs the checks opts asks for.
func Evaluate(sc Scenario, opts ReportOptions, lg zerolog.Logger) (Report, error) {
	if err := sc.Validate(); err != nil {
		return Report{}, err
	}
	for _, n := range scalarNames {
		if reduceScalar(sc.Scalars.Get(n)).Sign() == 0 {
			lg.Warn().Str("scalar", n).Msg("scalar is 0 mod r, point is at infinity")
		}
	}

	pts, err := DerivePoints(sc.Scalars)
	if err != nil {
		return Report{}, err
	}
	lg.Debug().Str("strategy", string(sc.Strategy)).Msg("points derived")

	res, err := CheckEquation(pts, sc.Scalars, sc.Strategy)
	if err != nil {
		return Report{}, err
	}
	nd, err := NonDegenerate()
	if err != nil {
		return Report{}, err
	}

	r := Report{
		Scenario:      sc,
		Points:        pts,
		Result:        res,
		NonDegenerate: nd,
		Debug:         opts.Debug,
	}

	if opts.Debug {
		if r.Terms, err = TermFingerprints(pts); err != nil {
			return Report{}, err
		}
		if r.StrategiesAgree, err = StrategiesAgree(pts); err != nil {
			return Report{}, err
		}
	}

	if opts.CrossCheck {
		cc, err := RunCrossCheck(sc.Scalars, pts)
		if err != nil {
			return Report{}, err
		}
		r.Cross = &cc
		if r.EVMPoints, err = CheckG1WithPrecompiles(sc, pts); err != nil {
			return Report{}, err
		}
		evm, err := RunPairingPrecompile(pts)
		if err != nil {
			return Report{}, err
		}
		r.EVM = &evm
		lg.Debug().Uint64("gas", evm.Gas).Msg("ecPairing precompile executed")
	}

	if opts.InCircuit {
		lg.Info().Msg("solving emulated pairing circuit, this takes a while")
		r.InCircuit = true
		r.InCircuitErr = SolvePairingCircuit(pts)
	}
	return r, nil
}

func g2Components(p *bn254.G2Affine) string {
	return fmt.Sprintf("x_re=%s, x_im=%s, y_re=%s, y_im=%s",
		fpDec(p.X.A0), fpDec(p.X.A1), fpDec(p.Y.A0), fpDec(p.Y.A1))
}

// WriteReport prints r in the harness's text format.
func WriteReport(w io.Writer, r Report) error {
	var b strings.Builder
	s := r.Scenario.Scalars
	p := r.Points

	b.WriteString("=== VALIDATION CHECK ===\n")
	fmt.Fprintf(&b, "A is valid: x=%s, y=%s\n", fpDec(p.A.X), fpDec(p.A.Y))
	fmt.Fprintf(&b, "B is valid: x_re=%s, x_im=%s\n", fpDec(p.B.X.A0), fpDec(p.B.X.A1))
	fmt.Fprintf(&b, "             y_re=%s, y_im=%s\n", fpDec(p.B.Y.A0), fpDec(p.B.Y.A1))
	fmt.Fprintf(&b, "G is valid: x=%s, y=%s\n", fpDec(p.G.X), fpDec(p.G.Y))
	fmt.Fprintf(&b, "E is valid: x=%s, y=%s\n", fpDec(p.E.X), fpDec(p.E.Y))

	b.WriteString("\n=== HARDCODED POINTS FOR SOLIDITY ===\n")
	if err := RenderConstants(&b, p, s); err != nil {
		return err
	}

	b.WriteString("\n=== TEST INPUT VALUES ===\n")
	fmt.Fprintf(&b, "A = %s*G1: (%s, %s)\n", s.A, fpDec(p.A.X), fpDec(p.A.Y))
	fmt.Fprintf(&b, "B = %s*G2: %s\n", s.B, g2Components(&p.B))
	fmt.Fprintf(&b, "G = %s*G1: (%s, %s)\n", s.G, fpDec(p.G.X), fpDec(p.G.Y))
	in := r.Scenario.Inputs
	fmt.Fprintf(&b, "x1_scalar = %s, x2_scalar = %s, x3_scalar = %s (sum = %s)\n", in[0], in[1], in[2], r.Scenario.InputSum())

	b.WriteString("\n=== VERIFICATION ===\n")
	fmt.Fprintf(&b, "Constraint check: -(%s*%s) + (%s*%s) + (%s*%s) + (%s*%s) = %s\n",
		s.A, s.B, s.C, s.D, s.E, s.F, s.G, s.H, r.Result.Identity)
	fmt.Fprintf(&b, "Pairing equation result: %t\n", r.Result.Holds)

	b.WriteString("\n=== DEBUGGING WITH GENERATOR POINTS ===\n")
	_, _, g1, g2 := bn254.Generators()
	fmt.Fprintf(&b, "G1 generator: (%s, %s)\n", fpDec(g1.X), fpDec(g1.Y))
	fmt.Fprintf(&b, "G2 generator: %s\n", g2Components(&g2))
	fmt.Fprintf(&b, "e(G1, G2) != 1: %t\n", r.NonDegenerate)

	if r.Debug {
		b.WriteString("\n=== PAIRING TERMS ===\n")
		for i, label := range []string{"e(-A, B)", "e(C, D)", "e(E, F)", "e(G, H)", "product"} {
			if i < len(r.Terms) {
				fmt.Fprintf(&b, "%s: %s\n", label, r.Terms[i])
			}
		}
		fmt.Fprintf(&b, "strategy: %s\n", r.Result.Strategy)
		fmt.Fprintf(&b, "identity mod r: %s\n", r.Result.IdentityModR)
		fmt.Fprintf(&b, "strategies agree: %t\n", r.StrategiesAgree)
	}

	if r.Cross != nil {
		b.WriteString("\n=== CROSS-CHECK ===\n")
		if len(r.Cross.Mismatched) == 0 {
			b.WriteString("cloudflare points match: true\n")
		} else {
			fmt.Fprintf(&b, "cloudflare points match: false (%s)\n", strings.Join(r.Cross.Mismatched, ","))
		}
		fmt.Fprintf(&b, "cloudflare pairing check: %t\n", r.Cross.Holds)
		for _, c := range r.EVMPoints {
			fmt.Fprintf(&b, "ecMul %s: %t\n", c.Name, c.Match)
		}
		if r.EVM != nil {
			fmt.Fprintf(&b, "ecPairing precompile: %t (gas %d)\n", r.EVM.PairingSucceeded(), r.EVM.Gas)
		}
	}

	if r.InCircuit {
		b.WriteString("\n=== IN-CIRCUIT CHECK ===\n")
		if r.InCircuitErr != nil {
			fmt.Fprintf(&b, "emulated pairing check: false (%v)\n", r.InCircuitErr)
		} else {
			b.WriteString("emulated pairing check: true\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
