// Copyright (C) 2025 Logical Mechanism LLC
// SPDX-License-Identifier: GPL-3.0-only

// points.go

package main

import (
	"encoding/hex"
	"fmt"
	"math/big"

	"golang.org/x/crypto/blake2b"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Sizes of the EVM (precompile) encodings.
const (
	evmWordSize = 32
	evmG1Size   = 2 * evmWordSize
	evmG2Size   = 4 * evmWordSize
)

// gtFingerprintTag is appended to the canonical GT bytes before hashing.
var gtFingerprintTag = []byte("bn254|gt|v1|")

// --- scalar multiplication ---

// reduceScalar returns k mod r in [0, r).
func reduceScalar(k *big.Int) *big.Int {
	if k == nil {
		return new(big.Int)
	}
	return new(big.Int).Mod(k, fr.Modulus())
}

// g1MulBase computes [k]G1. k may be negative or larger than r.
func g1MulBase(k *big.Int) bn254.G1Affine {
	var p bn254.G1Affine
	p.ScalarMultiplicationBase(reduceScalar(k))
	return p
}

// g2MulBase computes [k]G2. k may be negative or larger than r.
func g2MulBase(k *big.Int) bn254.G2Affine {
	var p bn254.G2Affine
	p.ScalarMultiplicationBase(reduceScalar(k))
	return p
}

// Points are the eight curve points derived from a Scalars set.
type Points struct {
	A, C, E, G bn254.G1Affine
	B, D, F, H bn254.G2Affine
}

// DerivePoints multiplies the generators by every scalar and checks that each
// result is a valid group element.
func DerivePoints(s Scalars) (Points, error) {
	for _, n := range scalarNames {
		if s.Get(n) == nil {
			return Points{}, fmt.Errorf("scalar %s is not set", n)
		}
	}

	p := Points{
		A: g1MulBase(s.A),
		B: g2MulBase(s.B),
		C: g1MulBase(s.C),
		D: g2MulBase(s.D),
		E: g1MulBase(s.E),
		F: g2MulBase(s.F),
		G: g1MulBase(s.G),
		H: g2MulBase(s.H),
	}

	for name, pt := range map[string]*bn254.G1Affine{"A": &p.A, "C": &p.C, "E": &p.E, "G": &p.G} {
		if err := validateG1(pt); err != nil {
			return Points{}, fmt.Errorf("point %s: %w", name, err)
		}
	}
	for name, pt := range map[string]*bn254.G2Affine{"B": &p.B, "D": &p.D, "F": &p.F, "H": &p.H} {
		if err := validateG2(pt); err != nil {
			return Points{}, fmt.Errorf("point %s: %w", name, err)
		}
	}
	return p, nil
}

// validateG1 accepts the point at infinity, otherwise requires curve and
// subgroup membership.
func validateG1(p *bn254.G1Affine) error {
	if p.IsInfinity() {
		return nil
	}
	if !p.IsOnCurve() {
		return fmt.Errorf("G1 point not on curve")
	}
	if !p.IsInSubGroup() {
		return fmt.Errorf("G1 point not in subgroup")
	}
	return nil
}

func validateG2(p *bn254.G2Affine) error {
	if p.IsInfinity() {
		return nil
	}
	if !p.IsOnCurve() {
		return fmt.Errorf("G2 point not on curve")
	}
	if !p.IsInSubGroup() {
		return fmt.Errorf("G2 point not in subgroup")
	}
	return nil
}

// --- EVM encodings ---

// g1EVMBytes encodes p as x || y, 32-byte big-endian words.
// The point at infinity encodes as 64 zero bytes.
func g1EVMBytes(p *bn254.G1Affine) []byte {
	out := make([]byte, 0, evmG1Size)
	x := p.X.Bytes()
	y := p.Y.Bytes()
	out = append(out, x[:]...)
	return append(out, y[:]...)
}

// g2EVMBytes encodes p as x_im || x_re || y_im || y_re, the order the
// pairing precompile expects.
func g2EVMBytes(p *bn254.G2Affine) []byte {
	out := make([]byte, 0, evmG2Size)
	for _, e := range []fp.Element{p.X.A1, p.X.A0, p.Y.A1, p.Y.A0} {
		b := e.Bytes()
		out = append(out, b[:]...)
	}
	return out
}

// --- decimal coordinates ---

func fpDec(e fp.Element) string {
	var bi big.Int
	e.BigInt(&bi)
	return bi.String()
}

// parseFp parses a canonical (already reduced) decimal or 0x field element.
func parseFp(s string) (fp.Element, error) {
	bi, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return fp.Element{}, fmt.Errorf("could not parse field element %q", s)
	}
	if bi.Sign() < 0 || bi.Cmp(fp.Modulus()) >= 0 {
		return fp.Element{}, fmt.Errorf("field element %s out of range", s)
	}
	var e fp.Element
	e.SetBigInt(bi)
	return e, nil
}

func parseG1Dec(x, y string) (bn254.G1Affine, error) {
	var p bn254.G1Affine
	var err error
	if p.X, err = parseFp(x); err != nil {
		return bn254.G1Affine{}, fmt.Errorf("G1.X: %w", err)
	}
	if p.Y, err = parseFp(y); err != nil {
		return bn254.G1Affine{}, fmt.Errorf("G1.Y: %w", err)
	}
	if err := validateG1(&p); err != nil {
		return bn254.G1Affine{}, err
	}
	return p, nil
}

func parseG2Dec(xRe, xIm, yRe, yIm string) (bn254.G2Affine, error) {
	var p bn254.G2Affine
	var err error
	if p.X.A0, err = parseFp(xRe); err != nil {
		return bn254.G2Affine{}, fmt.Errorf("G2.X.re: %w", err)
	}
	if p.X.A1, err = parseFp(xIm); err != nil {
		return bn254.G2Affine{}, fmt.Errorf("G2.X.im: %w", err)
	}
	if p.Y.A0, err = parseFp(yRe); err != nil {
		return bn254.G2Affine{}, fmt.Errorf("G2.Y.re: %w", err)
	}
	if p.Y.A1, err = parseFp(yIm); err != nil {
		return bn254.G2Affine{}, fmt.Errorf("G2.Y.im: %w", err)
	}
	if err := validateG2(&p); err != nil {
		return bn254.G2Affine{}, err
	}
	return p, nil
}

// --- GT fingerprint ---

// fq12CanonicalBytes serializes a GT element as 12 32-byte big-endian
// coefficients in the order
// (C0.B0.A0, C0.B0.A1, C0.B1.A0, C0.B1.A1, C0.B2.A0, C0.B2.A1,
//
//	C1.B0.A0, C1.B0.A1, C1.B1.A0, C1.B1.A1, C1.B2.A0, C1.B2.A1).
func fq12CanonicalBytes(k bn254.GT) []byte {
	out := make([]byte, 0, 12*fp.Bytes)

	appendFp := func(e fp.Element) {
		b := e.Bytes()
		out = append(out, b[:]...)
	}

	// C0
	appendFp(k.C0.B0.A0)
	appendFp(k.C0.B0.A1)
	appendFp(k.C0.B1.A0)
	appendFp(k.C0.B1.A1)
	appendFp(k.C0.B2.A0)
	appendFp(k.C0.B2.A1)

	// C1
	appendFp(k.C1.B0.A0)
	appendFp(k.C1.B0.A1)
	appendFp(k.C1.B1.A0)
	appendFp(k.C1.B1.A1)
	appendFp(k.C1.B2.A0)
	appendFp(k.C1.B2.A1)

	return out
}

// gtFingerprint is a short stable identifier for a GT element:
// blake2b-224( fq12CanonicalBytes(k) || gtFingerprintTag ), lowercase hex.
func gtFingerprint(k bn254.GT) string {
	h, _ := blake2b.New(28, nil) // 224-bit digest
	_, _ = h.Write(fq12CanonicalBytes(k))
	_, _ = h.Write(gtFingerprintTag)
	return hex.EncodeToString(h.Sum(nil))
}
