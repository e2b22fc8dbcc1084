// Copyright (C) 2025 Logical Mechanism LLC
// SPDX-License-Identifier: GPL-3.0-only

// circuit.go

package main

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/emulated/sw_bn254"
	"github.com/consensys/gnark/test"
)

// --- scalar identity as R1CS ---

// identityCircuit proves knowledge of (SA, SB) with
//
//	X[0]+X[1]+X[2] == E
//	SA*SB == CD + (X[0]+X[1]+X[2])*F + GH
//
// where E = sE, CD = sC*sD, GH = sG*sH and F = sF are compiled in as
// constants. This is the pairing equation with every point written as a
// multiple of the generator.
type identityCircuit struct {
	SA frontend.Variable
	SB frontend.Variable
	X  [3]frontend.Variable `gnark:",public"`

	E  *big.Int `gnark:"-"`
	CD *big.Int `gnark:"-"`
	F  *big.Int `gnark:"-"`
	GH *big.Int `gnark:"-"`
}

func (c *identityCircuit) Define(api frontend.API) error {
	sum := api.Add(c.X[0], c.X[1], c.X[2])
	api.AssertIsEqual(sum, c.E)
	rhs := api.Add(c.CD, api.Mul(sum, c.F), c.GH)
	api.AssertIsEqual(api.Mul(c.SA, c.SB), rhs)
	return nil
}

// newIdentityCircuit returns the circuit shape for the hardcoded scalars of s.
func newIdentityCircuit(s Scalars) *identityCircuit {
	cd := new(big.Int).Mul(s.C, s.D)
	gh := new(big.Int).Mul(s.G, s.H)
	return &identityCircuit{
		E:  reduceScalar(s.E),
		CD: reduceScalar(cd),
		F:  reduceScalar(s.F),
		GH: reduceScalar(gh),
	}
}

// newIdentityAssignment returns the full witness for sc.
func newIdentityAssignment(sc Scenario) *identityCircuit {
	a := newIdentityCircuit(sc.Scalars)
	a.SA = reduceScalar(sc.Scalars.A)
	a.SB = reduceScalar(sc.Scalars.B)
	for i, x := range sc.Inputs {
		a.X[i] = reduceScalar(x)
	}
	return a
}

// --- pairing equation in-circuit ---

// pairingCheckCircuit asserts prod e(P[i], Q[i]) == 1 with emulated BN254
// arithmetic.
type pairingCheckCircuit struct {
	P [4]sw_bn254.G1Affine
	Q [4]sw_bn254.G2Affine
}

func (c *pairingCheckCircuit) Define(api frontend.API) error {
	pr, err := sw_bn254.NewPairing(api)
	if err != nil {
		return fmt.Errorf("new pairing: %w", err)
	}
	P := make([]*sw_bn254.G1Affine, len(c.P))
	Q := make([]*sw_bn254.G2Affine, len(c.Q))
	for i := range c.P {
		P[i] = &c.P[i]
		Q[i] = &c.Q[i]
	}
	res, err := pr.Pair(P, Q)
	if err != nil {
		return fmt.Errorf("pair: %w", err)
	}
	pr.AssertIsEqual(res, pr.Ext12.One())
	return nil
}

func newPairingCheckAssignment(pts Points) (*pairingCheckCircuit, error) {
	P, Q := pts.pairingTerms()
	var a pairingCheckCircuit
	for i := range P {
		if P[i].IsInfinity() || Q[i].IsInfinity() {
			return nil, fmt.Errorf("pairing term %d has the point at infinity, not supported in-circuit", i)
		}
		a.P[i] = sw_bn254.NewG1Affine(P[i])
		a.Q[i] = sw_bn254.NewG2Affine(Q[i])
	}
	return &a, nil
}

// SolvePairingCircuit checks that the in-circuit pairing equation is
// satisfied by pts. It does not produce a proof.
func SolvePairingCircuit(pts Points) error {
	assignment, err := newPairingCheckAssignment(pts)
	if err != nil {
		return err
	}
	if err := test.IsSolved(&pairingCheckCircuit{}, assignment, ecc.BN254.ScalarField()); err != nil {
		return fmt.Errorf("in-circuit pairing check: %w", err)
	}
	return nil
}
