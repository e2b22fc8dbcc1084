// Copyright (C) 2025 Logical Mechanism LLC
// SPDX-License-Identifier: GPL-3.0-only

// evm_test.go
package main

import (
	"bytes"
	"math/big"
	"testing"
)

func TestPairingCalldata_Layout(t *testing.T) {
	pts := mustDerive(t, DefaultScenario().Scalars)
	cd := pairingCalldata(pts)
	if len(cd) != 4*(evmG1Size+evmG2Size) {
		t.Fatalf("calldata is %d bytes, want 768", len(cd))
	}

	negA := g1MulBase(big.NewInt(-4))
	if !bytes.Equal(cd[:evmG1Size], g1EVMBytes(&negA)) {
		t.Fatal("first pair should start with -A")
	}
	if !bytes.Equal(cd[evmG1Size:evmG1Size+evmG2Size], g2EVMBytes(&pts.B)) {
		t.Fatal("first pair should end with B")
	}
	last := 3 * (evmG1Size + evmG2Size)
	if !bytes.Equal(cd[last:last+evmG1Size], g1EVMBytes(&pts.G)) {
		t.Fatal("last pair should start with G")
	}
}

func TestRunPairingPrecompile(t *testing.T) {
	res, err := RunPairingPrecompile(mustDerive(t, DefaultScenario().Scalars))
	if err != nil {
		t.Fatalf("RunPairingPrecompile: %v", err)
	}
	if !res.PairingSucceeded() {
		t.Fatalf("precompile returned %x", res.Output)
	}
	// Istanbul: 45000 + 34000 per pair
	if res.Gas != 45000+4*34000 {
		t.Fatalf("gas = %d, want 181000", res.Gas)
	}
}

func TestRunPairingPrecompile_Fails(t *testing.T) {
	sc := scenarioWith(t, "H", 9)
	res, err := RunPairingPrecompile(mustDerive(t, sc.Scalars))
	if err != nil {
		t.Fatalf("RunPairingPrecompile: %v", err)
	}
	if res.PairingSucceeded() {
		t.Fatal("precompile should reject a non-zero identity")
	}
	if len(res.Output) != evmWordSize || new(big.Int).SetBytes(res.Output).Sign() != 0 {
		t.Fatalf("want a zero word, got %x", res.Output)
	}
}

func TestRunPrecompile_BadInput(t *testing.T) {
	// 100 bytes is not a multiple of 192
	if _, err := runPrecompile(addrEcPairing, make([]byte, 100)); err == nil {
		t.Fatal("expected error for malformed pairing input")
	}
}

func TestEcMulG1_MatchesGnark(t *testing.T) {
	for _, k := range []int64{1, 2, 5, 13, -4} {
		got, err := ecMulG1(big.NewInt(k))
		if err != nil {
			t.Fatalf("ecMul %d: %v", k, err)
		}
		want := g1MulBase(big.NewInt(k))
		if !bytes.Equal(got, g1EVMBytes(&want)) {
			t.Fatalf("ecMul %d mismatch", k)
		}
	}
}

func TestEcAddG1(t *testing.T) {
	a, err := ecMulG1(big.NewInt(2))
	if err != nil {
		t.Fatal(err)
	}
	b, err := ecMulG1(big.NewInt(3))
	if err != nil {
		t.Fatal(err)
	}
	sum, err := ecAddG1(a, b)
	if err != nil {
		t.Fatalf("ecAdd: %v", err)
	}
	want := g1MulBase(big.NewInt(5))
	if !bytes.Equal(sum, g1EVMBytes(&want)) {
		t.Fatal("2G + 3G != 5G")
	}
}

func TestCheckG1WithPrecompiles(t *testing.T) {
	sc := DefaultScenario()
	checks, err := CheckG1WithPrecompiles(sc, mustDerive(t, sc.Scalars))
	if err != nil {
		t.Fatalf("CheckG1WithPrecompiles: %v", err)
	}
	if len(checks) != 5 {
		t.Fatalf("want 5 checks, got %d", len(checks))
	}
	for _, c := range checks {
		if !c.Match {
			t.Fatalf("%s does not match", c.Name)
		}
	}
	if checks[4].Name != "E=sum(x)" {
		t.Fatalf("last check = %s", checks[4].Name)
	}
}

func TestRunCrossCheck(t *testing.T) {
	sc := DefaultScenario()
	pts := mustDerive(t, sc.Scalars)
	cc, err := RunCrossCheck(sc.Scalars, pts)
	if err != nil {
		t.Fatalf("RunCrossCheck: %v", err)
	}
	if len(cc.Mismatched) != 0 {
		t.Fatalf("mismatched points: %v", cc.Mismatched)
	}
	if !cc.Holds || !cc.OK(true) {
		t.Fatal("cloudflare should agree that the equation holds")
	}
}

func TestRunCrossCheck_AgreesOnFailure(t *testing.T) {
	sc := scenarioWith(t, "F", 8)
	pts := mustDerive(t, sc.Scalars)
	cc, err := RunCrossCheck(sc.Scalars, pts)
	if err != nil {
		t.Fatalf("RunCrossCheck: %v", err)
	}
	if cc.Holds {
		t.Fatal("cloudflare should reject the equation")
	}
	if !cc.OK(false) {
		t.Fatalf("cross-check should agree with gnark: %+v", cc)
	}
}

func TestRunCrossCheck_ReportsMismatch(t *testing.T) {
	sc := DefaultScenario()
	pts := mustDerive(t, sc.Scalars)
	// points derived from other scalars than the ones cloudflare sees
	pts.D, pts.C = pts.F, pts.E
	cc, err := RunCrossCheck(sc.Scalars, pts)
	if err != nil {
		t.Fatalf("RunCrossCheck: %v", err)
	}
	if len(cc.Mismatched) != 2 || cc.Mismatched[0] != "C" || cc.Mismatched[1] != "D" {
		t.Fatalf("mismatched = %v, want [C D]", cc.Mismatched)
	}
	if cc.OK(true) {
		t.Fatal("mismatch should fail the cross-check")
	}
}
