// Copyright (C) 2025 Logical Mechanism LLC
// SPDX-License-Identifier: GPL-3.0-only

// crosscheck.go

package main

import (
	"bytes"
	"fmt"
	"slices"

	cfbn256 "github.com/ethereum/go-ethereum/crypto/bn256/cloudflare"
)

// CrossCheck is the result of recomputing the harness with go-ethereum's
// cloudflare bn256 implementation.
type CrossCheck struct {
	// Mismatched names the points whose EVM encodings differ.
	Mismatched []string
	// Holds is cloudflare's verdict on the pairing equation.
	Holds bool
}

// OK reports whether every point matched and both libraries agree on the
// equation.
func (c CrossCheck) OK(gnarkHolds bool) bool {
	return len(c.Mismatched) == 0 && c.Holds == gnarkHolds
}

// RunCrossCheck derives the eight points again with cloudflare bn256, compares
// their encodings with pts, and evaluates the pairing check there.
func RunCrossCheck(s Scalars, pts Points) (CrossCheck, error) {
	var res CrossCheck

	g1 := make(map[string]*cfbn256.G1, 4)
	for name, want := range map[string][]byte{
		"A": g1EVMBytes(&pts.A),
		"C": g1EVMBytes(&pts.C),
		"E": g1EVMBytes(&pts.E),
		"G": g1EVMBytes(&pts.G),
	} {
		p := new(cfbn256.G1).ScalarBaseMult(reduceScalar(s.Get(name)))
		g1[name] = p
		if !bytes.Equal(p.Marshal(), want) {
			res.Mismatched = append(res.Mismatched, name)
		}
	}

	g2 := make(map[string]*cfbn256.G2, 4)
	for name, want := range map[string][]byte{
		"B": g2EVMBytes(&pts.B),
		"D": g2EVMBytes(&pts.D),
		"F": g2EVMBytes(&pts.F),
		"H": g2EVMBytes(&pts.H),
	} {
		p := new(cfbn256.G2).ScalarBaseMult(reduceScalar(s.Get(name)))
		g2[name] = p
		if !bytes.Equal(p.Marshal(), want) {
			res.Mismatched = append(res.Mismatched, name)
		}
	}
	slices.SortFunc(res.Mismatched, func(a, b string) int {
		return slices.Index(scalarNames[:], a) - slices.Index(scalarNames[:], b)
	})

	// Round trip through the EVM encoding so both sides see the same bytes.
	a := new(cfbn256.G1)
	if _, err := a.Unmarshal(g1EVMBytes(&pts.A)); err != nil {
		return res, fmt.Errorf("cloudflare unmarshal A: %w", err)
	}
	negA := new(cfbn256.G1).Neg(a)

	res.Holds = cfbn256.PairingCheck(
		[]*cfbn256.G1{negA, g1["C"], g1["E"], g1["G"]},
		[]*cfbn256.G2{g2["B"], g2["D"], g2["F"], g2["H"]},
	)
	return res, nil
}
