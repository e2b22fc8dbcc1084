// Copyright (C) 2025 Logical Mechanism LLC
// SPDX-License-Identifier: GPL-3.0-only

// pairing.go

package main

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Strategy selects how the pairing product is evaluated.
type Strategy string

const (
	// StrategyProduct runs a full pairing per term and multiplies in GT.
	StrategyProduct Strategy = "product"
	// StrategyMiller runs one multi Miller loop and one final exponentiation.
	StrategyMiller Strategy = "miller"
	// StrategyCheck calls bn254.PairingCheck and only yields a boolean.
	StrategyCheck Strategy = "check"
)

var allStrategies = []Strategy{StrategyProduct, StrategyMiller, StrategyCheck}

func parseStrategy(s string) (Strategy, error) {
	st := Strategy(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range allStrategies {
		if st == known {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown strategy %q (want product, miller or check)", s)
}

// gtOne returns the multiplicative identity of GT.
func gtOne() bn254.GT {
	var one bn254.GT
	one.SetOne()
	return one
}

func isGTOne(z *bn254.GT) bool {
	one := gtOne()
	return z.Equal(&one)
}

// pairingTerms lays the points out as the four pairs of
// e(-A,B) * e(C,D) * e(E,F) * e(G,H).
func (p Points) pairingTerms() ([]bn254.G1Affine, []bn254.G2Affine) {
	var negA bn254.G1Affine
	negA.Neg(&p.A)
	return []bn254.G1Affine{negA, p.C, p.E, p.G},
		[]bn254.G2Affine{p.B, p.D, p.F, p.H}
}

// pairingProduct evaluates prod e(P[i], Q[i]). StrategyCheck has no GT value
// and is rejected here; use pairingHolds.
func pairingProduct(P []bn254.G1Affine, Q []bn254.G2Affine, st Strategy) (bn254.GT, error) {
	if len(P) != len(Q) {
		return bn254.GT{}, fmt.Errorf("pairing: %d G1 points vs %d G2 points", len(P), len(Q))
	}

	switch st {
	case StrategyProduct:
		acc := gtOne()
		for i := range P {
			e, err := bn254.Pair([]bn254.G1Affine{P[i]}, []bn254.G2Affine{Q[i]})
			if err != nil {
				return bn254.GT{}, fmt.Errorf("pairing term %d: %w", i, err)
			}
			acc.Mul(&acc, &e)
		}
		return acc, nil

	case StrategyMiller:
		ml, err := bn254.MillerLoop(P, Q)
		if err != nil {
			return bn254.GT{}, fmt.Errorf("miller loop: %w", err)
		}
		return bn254.FinalExponentiation(&ml), nil
	}
	return bn254.GT{}, fmt.Errorf("strategy %q does not produce a GT element", st)
}

// pairingHolds reports whether prod e(P[i], Q[i]) == 1 using st.
func pairingHolds(P []bn254.G1Affine, Q []bn254.G2Affine, st Strategy) (bool, error) {
	if st == StrategyCheck {
		ok, err := bn254.PairingCheck(P, Q)
		if err != nil {
			return false, fmt.Errorf("pairing check: %w", err)
		}
		return ok, nil
	}
	z, err := pairingProduct(P, Q, st)
	if err != nil {
		return false, err
	}
	return isGTOne(&z), nil
}

// ScalarIdentity returns -(sA*sB) + sC*sD + sE*sF + sG*sH without reduction.
func ScalarIdentity(s Scalars) *big.Int {
	out := new(big.Int).Mul(s.A, s.B)
	out.Neg(out)
	for _, pair := range [][2]*big.Int{{s.C, s.D}, {s.E, s.F}, {s.G, s.H}} {
		out.Add(out, new(big.Int).Mul(pair[0], pair[1]))
	}
	return out
}

// CheckResult is the outcome of one evaluation of the pairing equation.
type CheckResult struct {
	Strategy Strategy
	Holds    bool

	// Product is nil for StrategyCheck.
	Product *bn254.GT

	Identity     *big.Int // unreduced
	IdentityModR *big.Int
}

// CheckEquation evaluates the four-term product for pts with st and checks it
// against the scalar identity of s. The two must agree; if they do not the
// pairing library and the scalars are out of sync and an error is returned.
func CheckEquation(pts Points, s Scalars, st Strategy) (CheckResult, error) {
	P, Q := pts.pairingTerms()

	res := CheckResult{
		Strategy:     st,
		Identity:     ScalarIdentity(s),
		IdentityModR: new(big.Int),
	}
	res.IdentityModR.Mod(res.Identity, fr.Modulus())

	if st == StrategyCheck {
		ok, err := pairingHolds(P, Q, st)
		if err != nil {
			return res, err
		}
		res.Holds = ok
	} else {
		z, err := pairingProduct(P, Q, st)
		if err != nil {
			return res, err
		}
		res.Product = &z
		res.Holds = isGTOne(&z)
	}

	if res.Holds != (res.IdentityModR.Sign() == 0) {
		return res, fmt.Errorf("internal: pairing result %v but scalar identity is %s mod r", res.Holds, res.IdentityModR)
	}
	return res, nil
}

// StrategiesAgree evaluates the equation with every strategy and reports
// whether they reach the same verdict, and for the GT-producing ones, the
// same GT element.
func StrategiesAgree(pts Points) (bool, error) {
	P, Q := pts.pairingTerms()

	prod, err := pairingProduct(P, Q, StrategyProduct)
	if err != nil {
		return false, err
	}
	ml, err := pairingProduct(P, Q, StrategyMiller)
	if err != nil {
		return false, err
	}
	chk, err := pairingHolds(P, Q, StrategyCheck)
	if err != nil {
		return false, err
	}
	return prod.Equal(&ml) && isGTOne(&prod) == chk, nil
}

// NonDegenerate reports e(G1, G2) != 1.
func NonDegenerate() (bool, error) {
	_, _, g1, g2 := bn254.Generators()
	e, err := bn254.Pair([]bn254.G1Affine{g1}, []bn254.G2Affine{g2})
	if err != nil {
		return false, fmt.Errorf("pair generators: %w", err)
	}
	return !isGTOne(&e), nil
}

// TermFingerprints returns the GT fingerprint of each of the four pairing
// terms in order, followed by that of their product.
func TermFingerprints(pts Points) ([]string, error) {
	P, Q := pts.pairingTerms()
	out := make([]string, 0, len(P)+1)
	acc := gtOne()
	for i := range P {
		e, err := bn254.Pair(P[i:i+1], Q[i:i+1])
		if err != nil {
			return nil, fmt.Errorf("pairing term %d: %w", i, err)
		}
		out = append(out, gtFingerprint(e))
		acc.Mul(&acc, &e)
	}
	return append(out, gtFingerprint(acc)), nil
}
