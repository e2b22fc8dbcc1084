// Copyright (C) 2025 Logical Mechanism LLC
// SPDX-License-Identifier: GPL-3.0-only

// solidity_test.go
package main

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
)

func TestRenderConstants_Layout(t *testing.T) {
	sc := DefaultScenario()
	pts := mustDerive(t, sc.Scalars)

	var out bytes.Buffer
	if err := RenderConstants(&out, pts, sc.Scalars); err != nil {
		t.Fatalf("RenderConstants: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")

	want := []string{
		"C = 5*G1:",
		"uint256 constant HARDCODED_POINT_C_G1_X = " + fpDec(pts.C.X) + ";",
		"uint256 constant HARDCODED_POINT_C_G1_Y = " + fpDec(pts.C.Y) + ";",
		"",
		"D = 6*G2:",
		"uint256 constant HARDCODED_POINT_D_G2_X_RE = " + fpDec(pts.D.X.A0) + ";",
		"uint256 constant HARDCODED_POINT_D_G2_X_IM = " + fpDec(pts.D.X.A1) + ";",
		"uint256 constant HARDCODED_POINT_D_G2_Y_RE = " + fpDec(pts.D.Y.A0) + ";",
		"uint256 constant HARDCODED_POINT_D_G2_Y_IM = " + fpDec(pts.D.Y.A1) + ";",
		"",
		"F = 7*G2:",
	}
	if len(lines) != 21 {
		t.Fatalf("want 21 lines, got %d:\n%s", len(lines), out.String())
	}
	for i, w := range want {
		if lines[i] != w {
			t.Fatalf("line %d:\n got %q\nwant %q", i, lines[i], w)
		}
	}
	if lines[16] != "H = 8*G2:" {
		t.Fatalf("line 16 = %q", lines[16])
	}
	if !strings.HasPrefix(lines[20], "uint256 constant HARDCODED_POINT_H_G2_Y_IM = ") {
		t.Fatalf("last line = %q", lines[20])
	}
}

func TestRenderConstants_FollowsScalars(t *testing.T) {
	sc := scenarioWith(t, "D", 11)
	pts := mustDerive(t, sc.Scalars)

	var out bytes.Buffer
	if err := RenderConstants(&out, pts, sc.Scalars); err != nil {
		t.Fatalf("RenderConstants: %v", err)
	}
	if !strings.Contains(out.String(), "D = 11*G2:\n") {
		t.Fatalf("header does not follow the scalar:\n%s", out.String())
	}
	if !strings.Contains(out.String(), fpDec(pts.D.X.A0)) {
		t.Fatal("constants do not follow the point")
	}
}

func TestRenderContract(t *testing.T) {
	sc := DefaultScenario()
	sc.Contract = "PairingCheck"
	pts := mustDerive(t, sc.Scalars)

	var out bytes.Buffer
	if err := RenderContract(&out, sc, pts); err != nil {
		t.Fatalf("RenderContract: %v", err)
	}
	src := out.String()

	for _, want := range []string{
		"// SPDX-License-Identifier: MIT\npragma solidity ^0.8.20;",
		"contract PairingCheck {",
		"uint256 constant PRIME_Q = " + fp.Modulus().String() + ";",
		"    // C = 5*G1:\n    uint256 constant HARDCODED_POINT_C_G1_X = ",
		"        input[6] = HARDCODED_POINT_C_G1_X;",
		"        input[7] = HARDCODED_POINT_C_G1_Y;",
		"        input[8] = HARDCODED_POINT_D_G2_X_IM;",
		"        input[9] = HARDCODED_POINT_D_G2_X_RE;",
		"        input[10] = HARDCODED_POINT_D_G2_Y_IM;",
		"        input[11] = HARDCODED_POINT_D_G2_Y_RE;",
		"        input[14] = HARDCODED_POINT_F_G2_X_IM;",
		"        input[23] = HARDCODED_POINT_H_G2_Y_RE;",
		"staticcall(gas(), 0x08, input, 0x300, out, 0x20)",
	} {
		if !strings.Contains(src, want) {
			t.Fatalf("contract missing %q\n%s", want, src)
		}
	}

	if strings.Contains(src, "{{") || strings.Contains(src, "<no value>") {
		t.Fatal("unexpanded template action in output")
	}
	if strings.Count(src, "{") != strings.Count(src, "}") {
		t.Fatal("unbalanced braces")
	}
	// every input word is assigned exactly once
	for i := 0; i < 24; i++ {
		needle := fmt.Sprintf("input[%d] = ", i)
		if strings.Count(src, needle) != 1 {
			t.Fatalf("%q assigned %d times", needle, strings.Count(src, needle))
		}
	}
}
