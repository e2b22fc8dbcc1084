// Copyright (C) 2025 Logical Mechanism LLC
// SPDX-License-Identifier: GPL-3.0-only

// verify_json.go

package main

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Artifacts are the JSON files written by ExportAll.
type Artifacts struct {
	VK     VKJSON
	Proof  ProofJSON
	Public PublicJSON
}

func readJSON(dir, name string, v any) error {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", name, err)
	}
	return nil
}

// LoadArtifactsJSON reads vk.json, proof.json and public.json from dir.
func LoadArtifactsJSON(dir string) (Artifacts, error) {
	var a Artifacts
	if err := readJSON(dir, "vk.json", &a.VK); err != nil {
		return a, err
	}
	if err := readJSON(dir, "proof.json", &a.Proof); err != nil {
		return a, err
	}
	if err := readJSON(dir, "public.json", &a.Public); err != nil {
		return a, err
	}
	if len(a.VK.IC) != len(a.Public.Inputs)+1 {
		return a, fmt.Errorf("len(IC)=%d does not match %d public inputs", len(a.VK.IC), len(a.Public.Inputs))
	}
	return a, nil
}

// vkX computes IC[0] + sum in[i]*IC[i+1].
func (a Artifacts) vkX() (bn254.G1Affine, error) {
	acc, err := a.VK.IC[0].point()
	if err != nil {
		return bn254.G1Affine{}, fmt.Errorf("IC[0]: %w", err)
	}
	for i, s := range a.Public.Inputs {
		k, ok := new(big.Int).SetString(s, 10)
		if !ok || k.Sign() < 0 || k.Cmp(fr.Modulus()) >= 0 {
			return bn254.G1Affine{}, fmt.Errorf("public input %d: %q is not a field element", i, s)
		}
		ic, err := a.VK.IC[i+1].point()
		if err != nil {
			return bn254.G1Affine{}, fmt.Errorf("IC[%d]: %w", i+1, err)
		}
		var term bn254.G1Affine
		term.ScalarMultiplication(&ic, k)
		acc.Add(&acc, &term)
	}
	return acc, nil
}

// groth16Terms lays out the verification equation as four pairs:
//
//	e(-A, B) * e(alpha, beta) * e(vk_x, gamma) * e(C, delta) == 1
func (a Artifacts) groth16Terms() ([]bn254.G1Affine, []bn254.G2Affine, error) {
	pa, err := a.Proof.A.point()
	if err != nil {
		return nil, nil, fmt.Errorf("proof A: %w", err)
	}
	pb, err := a.Proof.B.point()
	if err != nil {
		return nil, nil, fmt.Errorf("proof B: %w", err)
	}
	pc, err := a.Proof.C.point()
	if err != nil {
		return nil, nil, fmt.Errorf("proof C: %w", err)
	}
	alpha, err := a.VK.Alpha.point()
	if err != nil {
		return nil, nil, fmt.Errorf("vk alpha: %w", err)
	}
	beta, err := a.VK.Beta.point()
	if err != nil {
		return nil, nil, fmt.Errorf("vk beta: %w", err)
	}
	gamma, err := a.VK.Gamma.point()
	if err != nil {
		return nil, nil, fmt.Errorf("vk gamma: %w", err)
	}
	delta, err := a.VK.Delta.point()
	if err != nil {
		return nil, nil, fmt.Errorf("vk delta: %w", err)
	}
	vkx, err := a.vkX()
	if err != nil {
		return nil, nil, err
	}

	var negA bn254.G1Affine
	negA.Neg(&pa)
	return []bn254.G1Affine{negA, alpha, vkx, pc},
		[]bn254.G2Affine{pb, beta, gamma, delta}, nil
}

// VerifyArtifactsJSON rebuilds the Groth16 equation from the JSON files in dir
// and evaluates it with the same pairing code as the harness check.
func VerifyArtifactsJSON(dir string, st Strategy) (bool, error) {
	a, err := LoadArtifactsJSON(dir)
	if err != nil {
		return false, err
	}
	P, Q, err := a.groth16Terms()
	if err != nil {
		return false, err
	}
	return pairingHolds(P, Q, st)
}
