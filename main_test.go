// Copyright (C) 2025 Logical Mechanism LLC
// SPDX-License-Identifier: GPL-3.0-only

// main_test.go
package main

import (
	"bytes"
	"math/big"
	"os"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// --- helpers ---

// Coordinates of the BN254 generators and of 2*G1.
const (
	g2XRe = "10857046999023057135944570762232829481370756359578518086990519993285655852781"
	g2XIm = "11559732032986387107991004021392285783925812861821192530917403151452391805634"
	g2YRe = "8495653923123431417604973247489272438418190587263600148770280649306958101930"
	g2YIm = "4082367875863433681332203403145435568316851327593401208105741076214120093531"

	twoG1X = "1368015179489954701390400359078579693043519447331113978918064868415326638035"
	twoG1Y = "9918110051302171585080402603319702774565515993150576347155970296011118125764"
)

func mustReadFile(t *testing.T, p string) []byte {
	t.Helper()
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read %s: %v", p, err)
	}
	return b
}

func withTempCwd(t *testing.T, fn func(tmp string)) {
	t.Helper()
	tmp := t.TempDir()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(tmp); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer func() { _ = os.Chdir(old) }()
	fn(tmp)
}

func mustParseDecBigInt(t *testing.T, s string) *big.Int {
	t.Helper()
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		t.Fatalf("bad decimal big int: %q", s)
	}
	return b
}

func mustDerive(t *testing.T, s Scalars) Points {
	t.Helper()
	pts, err := DerivePoints(s)
	if err != nil {
		t.Fatalf("DerivePoints: %v", err)
	}
	return pts
}

// scenarioWith returns the default scenario with one scalar replaced.
func scenarioWith(t *testing.T, name string, v int64) Scenario {
	t.Helper()
	sc := DefaultScenario()
	if err := sc.Scalars.Set(name, big.NewInt(v)); err != nil {
		t.Fatalf("set %s: %v", name, err)
	}
	return sc
}

// --- scalar multiplication ---

func TestDerivePoints_ScalarOneIsGenerator(t *testing.T) {
	_, _, g1, g2 := bn254.Generators()

	p1 := g1MulBase(big.NewInt(1))
	if !p1.Equal(&g1) {
		t.Fatal("1*G1 != G1")
	}
	if fpDec(p1.X) != "1" || fpDec(p1.Y) != "2" {
		t.Fatalf("G1 = (%s, %s), want (1, 2)", fpDec(p1.X), fpDec(p1.Y))
	}

	p2 := g2MulBase(big.NewInt(1))
	if !p2.Equal(&g2) {
		t.Fatal("1*G2 != G2")
	}
	if fpDec(p2.X.A0) != g2XRe || fpDec(p2.X.A1) != g2XIm || fpDec(p2.Y.A0) != g2YRe || fpDec(p2.Y.A1) != g2YIm {
		t.Fatalf("unexpected G2 generator: %s", g2Components(&p2))
	}
}

func TestG1MulBase_Two(t *testing.T) {
	p := g1MulBase(big.NewInt(2))
	if fpDec(p.X) != twoG1X || fpDec(p.Y) != twoG1Y {
		t.Fatalf("2*G1 = (%s, %s)", fpDec(p.X), fpDec(p.Y))
	}
}

func TestScalarMul_MatchesRepeatedAddition(t *testing.T) {
	_, _, g1, g2 := bn254.Generators()

	var acc1 bn254.G1Jac
	var acc2 bn254.G2Jac
	var base1 bn254.G1Jac
	var base2 bn254.G2Jac
	base1.FromAffine(&g1)
	base2.FromAffine(&g2)
	acc1.Set(&base1)
	acc2.Set(&base2)

	for k := int64(1); k <= 16; k++ {
		var naive1 bn254.G1Affine
		var naive2 bn254.G2Affine
		naive1.FromJacobian(&acc1)
		naive2.FromJacobian(&acc2)

		fast1 := g1MulBase(big.NewInt(k))
		fast2 := g2MulBase(big.NewInt(k))
		if !fast1.Equal(&naive1) {
			t.Fatalf("G1: %d*G != G+...+G", k)
		}
		if !fast2.Equal(&naive2) {
			t.Fatalf("G2: %d*G != G+...+G", k)
		}

		acc1.AddAssign(&base1)
		acc2.AddAssign(&base2)
	}
}

func TestScalarMul_ReducesModR(t *testing.T) {
	r := fr.Modulus()

	five := g1MulBase(big.NewInt(5))
	rPlus5 := g1MulBase(new(big.Int).Add(r, big.NewInt(5)))
	if !five.Equal(&rPlus5) {
		t.Fatal("(r+5)*G1 != 5*G1")
	}

	four := g1MulBase(big.NewInt(4))
	var negFour bn254.G1Affine
	negFour.Neg(&four)
	minusFour := g1MulBase(big.NewInt(-4))
	if !minusFour.Equal(&negFour) {
		t.Fatal("(-4)*G1 != -(4*G1)")
	}

	inf := g1MulBase(r)
	if !inf.IsInfinity() {
		t.Fatal("r*G1 should be the point at infinity")
	}
	inf2 := g2MulBase(big.NewInt(0))
	if !inf2.IsInfinity() {
		t.Fatal("0*G2 should be the point at infinity")
	}
}

func TestDerivePoints_RejectsUnsetScalar(t *testing.T) {
	s := DefaultScenario().Scalars
	s.F = nil
	if _, err := DerivePoints(s); err == nil {
		t.Fatal("expected error for unset scalar")
	}
}

// --- pairing ---

func TestPairing_Bilinearity(t *testing.T) {
	_, _, g1, g2 := bn254.Generators()
	base, err := bn254.Pair([]bn254.G1Affine{g1}, []bn254.G2Affine{g2})
	if err != nil {
		t.Fatalf("pair: %v", err)
	}

	for _, c := range []struct{ a, b int64 }{{2, 3}, {6, 11}, {13, 4}} {
		aP := g1MulBase(big.NewInt(c.a))
		bQ := g2MulBase(big.NewInt(c.b))
		lhs, err := bn254.Pair([]bn254.G1Affine{aP}, []bn254.G2Affine{bQ})
		if err != nil {
			t.Fatalf("pair: %v", err)
		}
		var rhs bn254.GT
		rhs.Exp(base, big.NewInt(c.a*c.b))
		if !lhs.Equal(&rhs) {
			t.Fatalf("e(%dP, %dQ) != e(P,Q)^%d", c.a, c.b, c.a*c.b)
		}
	}
}

func TestCheckEquation_DefaultHoldsForEveryStrategy(t *testing.T) {
	sc := DefaultScenario()
	pts := mustDerive(t, sc.Scalars)

	for _, st := range allStrategies {
		res, err := CheckEquation(pts, sc.Scalars, st)
		if err != nil {
			t.Fatalf("%s: %v", st, err)
		}
		if !res.Holds {
			t.Fatalf("%s: equation should hold for the default scalars", st)
		}
		if res.Identity.Sign() != 0 || res.IdentityModR.Sign() != 0 {
			t.Fatalf("%s: identity = %s", st, res.Identity)
		}
		if st == StrategyCheck && res.Product != nil {
			t.Fatal("check strategy should not produce a GT value")
		}
		if st != StrategyCheck && (res.Product == nil || !isGTOne(res.Product)) {
			t.Fatalf("%s: product should be one", st)
		}
	}
}

func TestCheckEquation_FailsIffIdentityNonZero(t *testing.T) {
	for _, name := range []string{"A", "B", "C", "D", "E", "F", "G", "H"} {
		sc := scenarioWith(t, name, 9)
		pts := mustDerive(t, sc.Scalars)
		res, err := CheckEquation(pts, sc.Scalars, StrategyMiller)
		if err != nil {
			t.Fatalf("%s=9: %v", name, err)
		}
		wantHolds := ScalarIdentity(sc.Scalars).Sign() == 0
		if res.Holds != wantHolds {
			t.Fatalf("%s=9: holds=%v, identity=%s", name, res.Holds, res.Identity)
		}
	}
}

func TestCheckEquation_HoldsModROnly(t *testing.T) {
	// A = 4 + r: the integer identity is -13r, zero only mod r.
	sc := DefaultScenario()
	sc.Scalars.A = new(big.Int).Add(big.NewInt(4), fr.Modulus())
	pts := mustDerive(t, sc.Scalars)

	res, err := CheckEquation(pts, sc.Scalars, StrategyProduct)
	if err != nil {
		t.Fatalf("CheckEquation: %v", err)
	}
	if !res.Holds {
		t.Fatal("equation should hold mod r")
	}
	want := new(big.Int).Mul(big.NewInt(-13), fr.Modulus())
	if res.Identity.Cmp(want) != 0 {
		t.Fatalf("identity = %s, want %s", res.Identity, want)
	}
	if res.IdentityModR.Sign() != 0 {
		t.Fatalf("identity mod r = %s", res.IdentityModR)
	}
}

func TestCheckEquation_PointAtInfinity(t *testing.T) {
	// C = 0 puts the point at infinity into e(C, D); H = 38 keeps the identity.
	sc := DefaultScenario()
	sc.Scalars.C = big.NewInt(0)
	sc.Scalars.H = big.NewInt(38)
	pts := mustDerive(t, sc.Scalars)
	if !pts.C.IsInfinity() {
		t.Fatal("0*G1 should be infinity")
	}
	for _, st := range allStrategies {
		res, err := CheckEquation(pts, sc.Scalars, st)
		if err != nil {
			t.Fatalf("%s: %v", st, err)
		}
		if !res.Holds {
			t.Fatalf("%s: equation should hold", st)
		}
	}
}

func TestStrategiesAgree(t *testing.T) {
	for _, sc := range []Scenario{DefaultScenario(), scenarioWith(t, "D", 7)} {
		ok, err := StrategiesAgree(mustDerive(t, sc.Scalars))
		if err != nil {
			t.Fatalf("StrategiesAgree: %v", err)
		}
		if !ok {
			t.Fatal("strategies disagree")
		}
	}
}

func TestPairingProduct_RejectsLengthMismatch(t *testing.T) {
	_, _, g1, g2 := bn254.Generators()
	if _, err := pairingProduct([]bn254.G1Affine{g1}, []bn254.G2Affine{g2, g2}, StrategyProduct); err == nil {
		t.Fatal("expected length mismatch error")
	}
	if _, err := pairingProduct([]bn254.G1Affine{g1}, []bn254.G2Affine{g2}, StrategyCheck); err == nil {
		t.Fatal("check strategy has no GT value")
	}
}

func TestNonDegenerate(t *testing.T) {
	ok, err := NonDegenerate()
	if err != nil {
		t.Fatalf("NonDegenerate: %v", err)
	}
	if !ok {
		t.Fatal("e(G1, G2) should not be one")
	}
}

func TestScalarIdentity_Default(t *testing.T) {
	if got := ScalarIdentity(DefaultScenario().Scalars); got.Sign() != 0 {
		t.Fatalf("identity = %s", got)
	}
	sc := scenarioWith(t, "H", 9)
	if got := ScalarIdentity(sc.Scalars); got.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("identity with H=9 = %s, want 1", got)
	}
}

// --- GT fingerprint ---

func TestFQ12CanonicalBytes_One(t *testing.T) {
	enc := fq12CanonicalBytes(gtOne())
	if len(enc) != 12*32 {
		t.Fatalf("len = %d", len(enc))
	}
	for i, b := range enc {
		want := byte(0)
		if i == 31 {
			want = 1
		}
		if b != want {
			t.Fatalf("byte %d = %d, want %d", i, b, want)
		}
	}
}

func TestTermFingerprints(t *testing.T) {
	fps, err := TermFingerprints(mustDerive(t, DefaultScenario().Scalars))
	if err != nil {
		t.Fatalf("TermFingerprints: %v", err)
	}
	if len(fps) != 5 {
		t.Fatalf("want 5 fingerprints, got %d", len(fps))
	}
	for i, fp := range fps {
		if len(fp) != 56 {
			t.Fatalf("fingerprint %d has %d hex chars", i, len(fp))
		}
	}
	if fps[4] != gtFingerprint(gtOne()) {
		t.Fatal("product fingerprint should be that of one")
	}
	if fps[0] == fps[1] {
		t.Fatal("distinct terms should have distinct fingerprints")
	}
}

// --- encodings ---

func TestEVMBytes_Generators(t *testing.T) {
	_, _, g1, g2 := bn254.Generators()

	b1 := g1EVMBytes(&g1)
	if len(b1) != 64 || b1[31] != 1 || b1[63] != 2 {
		t.Fatalf("unexpected G1 encoding %x", b1)
	}
	if !bytes.Equal(b1[:31], make([]byte, 31)) {
		t.Fatal("G1 x should be left padded")
	}

	b2 := g2EVMBytes(&g2)
	if len(b2) != 128 {
		t.Fatalf("len = %d", len(b2))
	}
	words := []string{g2XIm, g2XRe, g2YIm, g2YRe}
	for i, w := range words {
		got := new(big.Int).SetBytes(b2[i*32 : (i+1)*32])
		if got.Cmp(mustParseDecBigInt(t, w)) != 0 {
			t.Fatalf("word %d = %s, want %s", i, got, w)
		}
	}
}

func TestEVMBytes_InfinityIsZero(t *testing.T) {
	var inf bn254.G1Affine
	if !bytes.Equal(g1EVMBytes(&inf), make([]byte, 64)) {
		t.Fatal("infinity should encode as zeros")
	}
}

func TestParseG1Dec(t *testing.T) {
	p, err := parseG1Dec(twoG1X, twoG1Y)
	if err != nil {
		t.Fatalf("parseG1Dec: %v", err)
	}
	want := g1MulBase(big.NewInt(2))
	if !p.Equal(&want) {
		t.Fatal("parsed point != 2*G1")
	}

	if _, err := parseG1Dec("0", "0"); err != nil {
		t.Fatalf("infinity should parse: %v", err)
	}
	if _, err := parseG1Dec("1", "3"); err == nil {
		t.Fatal("expected off-curve error")
	}
	if _, err := parseG1Dec(fp.Modulus().String(), "2"); err == nil {
		t.Fatal("expected out-of-range error")
	}
	if _, err := parseG1Dec("nope", "2"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestParseG2Dec(t *testing.T) {
	p, err := parseG2Dec(g2XRe, g2XIm, g2YRe, g2YIm)
	if err != nil {
		t.Fatalf("parseG2Dec: %v", err)
	}
	_, _, _, g2 := bn254.Generators()
	if !p.Equal(&g2) {
		t.Fatal("parsed point != G2")
	}
	// swapping real and imaginary parts leaves the curve
	if _, err := parseG2Dec(g2XIm, g2XRe, g2YIm, g2YRe); err == nil {
		t.Fatal("expected error for swapped components")
	}
}

func TestG1G2JSON_RoundTrip(t *testing.T) {
	pts := mustDerive(t, DefaultScenario().Scalars)
	a, err := g1JSON(pts.A).point()
	if err != nil || !a.Equal(&pts.A) {
		t.Fatalf("G1 JSON round trip: %v", err)
	}
	b, err := g2JSON(pts.B).point()
	if err != nil || !b.Equal(&pts.B) {
		t.Fatalf("G2 JSON round trip: %v", err)
	}
}

// --- report ---

func TestWriteReport_HasAllSections(t *testing.T) {
	sc := DefaultScenario()
	r, err := Evaluate(sc, ReportOptions{Debug: true}, newLogger(&bytes.Buffer{}, false))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !r.OK() {
		t.Fatal("default report should be OK")
	}
	var out bytes.Buffer
	if err := WriteReport(&out, r); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}

	s := out.String()
	for _, want := range []string{
		"=== VALIDATION CHECK ===\nA is valid: x=",
		"\n\n=== HARDCODED POINTS FOR SOLIDITY ===\nC = 5*G1:\n",
		"\n\n=== TEST INPUT VALUES ===\nA = 4*G1: (",
		"B = 13*G2: x_re=",
		"G = 1*G1: (1, 2)\n",
		"x1_scalar = 1, x2_scalar = 1, x3_scalar = 0 (sum = 2)\n",
		"\n\n=== VERIFICATION ===\nConstraint check: -(4*13) + (5*6) + (2*7) + (1*8) = 0\nPairing equation result: true\n",
		"\n\n=== DEBUGGING WITH GENERATOR POINTS ===\nG1 generator: (1, 2)\n",
		"G2 generator: x_re=" + g2XRe + ", x_im=" + g2XIm + ", y_re=" + g2YRe + ", y_im=" + g2YIm + "\n",
		"e(G1, G2) != 1: true\n",
		"=== PAIRING TERMS ===",
		"strategies agree: true\n",
	} {
		if !bytes.Contains(out.Bytes(), []byte(want)) {
			t.Fatalf("report missing %q\n%s", want, s)
		}
	}
}

func TestEvaluate_RejectsInvalidScenario(t *testing.T) {
	sc := DefaultScenario()
	sc.Inputs[2] = big.NewInt(5)
	if _, err := Evaluate(sc, ReportOptions{}, newLogger(&bytes.Buffer{}, false)); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestEvaluate_WarnsOnZeroScalar(t *testing.T) {
	sc := DefaultScenario()
	sc.Scalars.C = big.NewInt(0)
	sc.Scalars.H = big.NewInt(38)

	var logs bytes.Buffer
	r, err := Evaluate(sc, ReportOptions{}, newLogger(&logs, false))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !r.Result.Holds {
		t.Fatal("equation should hold")
	}
	if !bytes.Contains(logs.Bytes(), []byte("point is at infinity")) {
		t.Fatalf("expected a warning, got %q", logs.String())
	}
}
