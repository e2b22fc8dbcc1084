// Copyright (C) 2025 Logical Mechanism LLC
// SPDX-License-Identifier: GPL-3.0-only

// solidity.go

package main

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
)

// hardcodedCoord is one `uint256 constant` line.
type hardcodedCoord struct {
	Suffix string
	Value  string
}

// hardcodedPoint is one of the fixed points baked into the verifier.
type hardcodedPoint struct {
	Name   string
	Scalar string
	Group  string
	Coords []hardcodedCoord
}

// ConstName is the Solidity identifier of one coordinate of h.
func (h hardcodedPoint) ConstName(suffix string) string {
	return fmt.Sprintf("HARDCODED_POINT_%s_%s_%s", h.Name, h.Group, suffix)
}

func hardcodedG1(name string, s Scalars, p *bn254.G1Affine) hardcodedPoint {
	return hardcodedPoint{
		Name:   name,
		Scalar: s.Get(name).String(),
		Group:  "G1",
		Coords: []hardcodedCoord{
			{"X", fpDec(p.X)},
			{"Y", fpDec(p.Y)},
		},
	}
}

// hardcodedG2 lists real before imaginary, the way the values are usually
// read; the contract reorders them for the precompile.
func hardcodedG2(name string, s Scalars, p *bn254.G2Affine) hardcodedPoint {
	return hardcodedPoint{
		Name:   name,
		Scalar: s.Get(name).String(),
		Group:  "G2",
		Coords: []hardcodedCoord{
			{"X_RE", fpDec(p.X.A0)},
			{"X_IM", fpDec(p.X.A1)},
			{"Y_RE", fpDec(p.Y.A0)},
			{"Y_IM", fpDec(p.Y.A1)},
		},
	}
}

// hardcodedPoints returns C, D, F and H in report order.
func hardcodedPoints(pts Points, s Scalars) []hardcodedPoint {
	return []hardcodedPoint{
		hardcodedG1("C", s, &pts.C),
		hardcodedG2("D", s, &pts.D),
		hardcodedG2("F", s, &pts.F),
		hardcodedG2("H", s, &pts.H),
	}
}

// constantsTemplate takes a constantsData; Prefix goes in front of the
// "C = 5*G1:" header lines so they can be commented out inside a contract.
const constantsTemplate = `
{{- range $i, $p := .Points }}{{ if $i }}
{{ end }}{{ $.Prefix }}{{ $p.Name }} = {{ $p.Scalar }}*{{ $p.Group }}:
{{ range $p.Coords }}uint256 constant {{ $p.ConstName .Suffix }} = {{ .Value }};
{{ end }}{{ end -}}
`

type constantsData struct {
	Prefix string
	Points []hardcodedPoint
}

var tmplConstants = template.Must(template.New("constants").Parse(constantsTemplate))

// RenderConstants writes the `uint256 constant HARDCODED_POINT_*` block.
func RenderConstants(w io.Writer, pts Points, s Scalars) error {
	return renderConstants(w, "", hardcodedPoints(pts, s))
}

func renderConstants(w io.Writer, prefix string, hp []hardcodedPoint) error {
	if err := tmplConstants.Execute(w, constantsData{Prefix: prefix, Points: hp}); err != nil {
		return fmt.Errorf("render constants: %w", err)
	}
	return nil
}

// contractData feeds contractTemplate.
type contractData struct {
	Name         string
	FieldModulus string
	Constants    string
	C, D, F, H   hardcodedPoint
}

const contractTemplate = `// SPDX-License-Identifier: MIT
pragma solidity ^0.8.20;

/// @title {{ .Name }}
/// @notice Checks e(-A, B) * e(C, D) * e(E, F) * e(G, H) == 1 on BN254.
/// C, D, F and H are fixed. E = (x[0] + x[1] + x[2]) * G1.
contract {{ .Name }} {
    uint256 constant PRIME_Q = {{ .FieldModulus }};
    uint256 constant G1_X = 1;
    uint256 constant G1_Y = 2;

{{ indent 4 .Constants }}

    function negate(uint256[2] memory p) internal pure returns (uint256[2] memory) {
        if (p[0] == 0 && p[1] == 0) {
            return p;
        }
        return [p[0], PRIME_Q - (p[1] % PRIME_Q)];
    }

    function ecAdd(uint256[2] memory p1, uint256[2] memory p2) internal view returns (uint256[2] memory r) {
        uint256[4] memory input = [p1[0], p1[1], p2[0], p2[1]];
        bool ok;
        assembly {
            ok := staticcall(gas(), 0x06, input, 0x80, r, 0x40)
        }
        require(ok, "ecAdd failed");
    }

    function ecMul(uint256[2] memory p, uint256 s) internal view returns (uint256[2] memory r) {
        uint256[3] memory input = [p[0], p[1], s];
        bool ok;
        assembly {
            ok := staticcall(gas(), 0x07, input, 0x60, r, 0x40)
        }
        require(ok, "ecMul failed");
    }

    /// @param a G1 point A (negated here)
    /// @param b G2 point B as [[x_im, x_re], [y_im, y_re]]
    /// @param g G1 point G
    /// @param x public inputs, E = (x[0] + x[1] + x[2]) * G1
    function verify(
        uint256[2] calldata a,
        uint256[2][2] calldata b,
        uint256[2] calldata g,
        uint256[3] calldata x
    ) external view returns (bool) {
        uint256[2] memory e = [uint256(0), uint256(0)];
        for (uint256 i = 0; i < 3; i++) {
            e = ecAdd(e, ecMul([G1_X, G1_Y], x[i]));
        }
        uint256[2] memory negA = negate(a);

        uint256[24] memory input;
        input[0] = negA[0];
        input[1] = negA[1];
        input[2] = b[0][0];
        input[3] = b[0][1];
        input[4] = b[1][0];
        input[5] = b[1][1];
{{ g1Words 6 .C }}
{{ g2Words 8 .D }}
        input[12] = e[0];
        input[13] = e[1];
{{ g2Words 14 .F }}
        input[18] = g[0];
        input[19] = g[1];
{{ g2Words 20 .H }}

        uint256[1] memory out;
        bool ok;
        assembly {
            ok := staticcall(gas(), 0x08, input, 0x300, out, 0x20)
        }
        return ok && out[0] == 1;
    }
}
`

var contractFuncs = template.FuncMap{
	"indent": func(n int, s string) string {
		pad := strings.Repeat(" ", n)
		lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
		for i, l := range lines {
			if l != "" {
				lines[i] = pad + l
			}
		}
		return strings.Join(lines, "\n")
	},
	"g1Words": func(at int, p hardcodedPoint) string {
		return inputAssignments(at, p, "X", "Y")
	},
	// precompile order, imaginary first
	"g2Words": func(at int, p hardcodedPoint) string {
		return inputAssignments(at, p, "X_IM", "X_RE", "Y_IM", "Y_RE")
	},
}

func inputAssignments(at int, p hardcodedPoint, suffixes ...string) string {
	var b strings.Builder
	for i, s := range suffixes {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "        input[%d] = %s;", at+i, p.ConstName(s))
	}
	return b.String()
}

var tmplContract = template.Must(template.New("contract").Funcs(contractFuncs).Parse(contractTemplate))

// RenderContract writes a Solidity contract embedding the hardcoded points of
// sc and checking the four-term pairing equation through the BN254
// precompiles.
func RenderContract(w io.Writer, sc Scenario, pts Points) error {
	hp := hardcodedPoints(pts, sc.Scalars)
	var consts bytes.Buffer
	if err := renderConstants(&consts, "// ", hp); err != nil {
		return err
	}
	data := contractData{
		Name:         sc.Contract,
		FieldModulus: fp.Modulus().String(),
		Constants:    consts.String(),
		C:            hp[0],
		D:            hp[1],
		F:            hp[2],
		H:            hp[3],
	}
	if err := tmplContract.Execute(w, data); err != nil {
		return fmt.Errorf("render contract: %w", err)
	}
	return nil
}
