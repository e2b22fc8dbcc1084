// Copyright (C) 2025 Logical Mechanism LLC
// SPDX-License-Identifier: GPL-3.0-only

// evm.go

package main

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"
)

var (
	addrEcAdd     = common.BytesToAddress([]byte{0x06})
	addrEcMul     = common.BytesToAddress([]byte{0x07})
	addrEcPairing = common.BytesToAddress([]byte{0x08})
)

// precompile returns the Istanbul BN254 precompile at addr.
func precompile(addr common.Address) (vm.PrecompiledContract, error) {
	p, ok := vm.PrecompiledContractsIstanbul[addr]
	if !ok {
		return nil, fmt.Errorf("no precompile at %s", addr.Hex())
	}
	return p, nil
}

// pairingCalldata encodes the four pairs of the equation as ecPairing input:
// 4 * (G1 x||y, G2 x_im||x_re||y_im||y_re).
func pairingCalldata(pts Points) []byte {
	P, Q := pts.pairingTerms()
	out := make([]byte, 0, len(P)*(evmG1Size+evmG2Size))
	for i := range P {
		out = append(out, g1EVMBytes(&P[i])...)
		out = append(out, g2EVMBytes(&Q[i])...)
	}
	return out
}

// PrecompileResult is the outcome of one precompile call.
type PrecompileResult struct {
	Output []byte
	Gas    uint64
}

// PairingSucceeded reports whether Output is the 32-byte word 1.
func (r PrecompileResult) PairingSucceeded() bool {
	return len(r.Output) == evmWordSize && new(big.Int).SetBytes(r.Output).Cmp(big.NewInt(1)) == 0
}

func runPrecompile(addr common.Address, input []byte) (PrecompileResult, error) {
	p, err := precompile(addr)
	if err != nil {
		return PrecompileResult{}, err
	}
	gas := p.RequiredGas(input)
	out, err := p.Run(input)
	if err != nil {
		return PrecompileResult{Gas: gas}, fmt.Errorf("precompile %s: %w", addr.Hex(), err)
	}
	return PrecompileResult{Output: out, Gas: gas}, nil
}

// RunPairingPrecompile executes the pairing calldata for pts on the EVM
// ecPairing precompile.
func RunPairingPrecompile(pts Points) (PrecompileResult, error) {
	return runPrecompile(addrEcPairing, pairingCalldata(pts))
}

// ecMulG1 computes [k]G1 through the ecMul precompile and returns the 64-byte
// encoding.
func ecMulG1(k *big.Int) ([]byte, error) {
	_, _, g1, _ := bn254.Generators()
	input := make([]byte, 0, evmG1Size+evmWordSize)
	input = append(input, g1EVMBytes(&g1)...)
	input = append(input, common.LeftPadBytes(reduceScalar(k).Bytes(), evmWordSize)...)
	res, err := runPrecompile(addrEcMul, input)
	if err != nil {
		return nil, err
	}
	return res.Output, nil
}

// ecAddG1 adds two encoded G1 points through the ecAdd precompile.
func ecAddG1(a, b []byte) ([]byte, error) {
	input := make([]byte, 0, 2*evmG1Size)
	input = append(input, a...)
	input = append(input, b...)
	res, err := runPrecompile(addrEcAdd, input)
	if err != nil {
		return nil, err
	}
	return res.Output, nil
}

// EVMPointCheck compares one G1 point derived by gnark-crypto with the one the
// EVM precompiles compute.
type EVMPointCheck struct {
	Name  string
	Match bool
}

// CheckG1WithPrecompiles recomputes A, C, E and G with ecMul, and E a second
// time as the contract does it, sum over [x_i]G1 with ecAdd.
func CheckG1WithPrecompiles(sc Scenario, pts Points) ([]EVMPointCheck, error) {
	var out []EVMPointCheck
	for _, c := range []struct {
		name string
		k    *big.Int
		p    *bn254.G1Affine
	}{
		{"A", sc.Scalars.A, &pts.A},
		{"C", sc.Scalars.C, &pts.C},
		{"E", sc.Scalars.E, &pts.E},
		{"G", sc.Scalars.G, &pts.G},
	} {
		got, err := ecMulG1(c.k)
		if err != nil {
			return nil, fmt.Errorf("ecMul %s: %w", c.name, err)
		}
		out = append(out, EVMPointCheck{Name: c.name, Match: bytes.Equal(got, g1EVMBytes(c.p))})
	}

	acc := make([]byte, evmG1Size)
	for i, x := range sc.Inputs {
		xi, err := ecMulG1(x)
		if err != nil {
			return nil, fmt.Errorf("ecMul x%d: %w", i+1, err)
		}
		if acc, err = ecAddG1(acc, xi); err != nil {
			return nil, fmt.Errorf("ecAdd x%d: %w", i+1, err)
		}
	}
	out = append(out, EVMPointCheck{Name: "E=sum(x)", Match: bytes.Equal(acc, g1EVMBytes(&pts.E))})
	return out, nil
}
