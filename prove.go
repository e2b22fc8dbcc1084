// Copyright (C) 2025 Logical Mechanism LLC
// SPDX-License-Identifier: GPL-3.0-only

// prove.go

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	backend_witness "github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
)

// CompileIdentityCircuit compiles the scalar identity circuit for the
// hardcoded scalars of sc over the BN254 scalar field.
func CompileIdentityCircuit(sc Scenario) (constraint.ConstraintSystem, error) {
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, newIdentityCircuit(sc.Scalars))
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	return ccs, nil
}

// identityWitness builds the full and public witness for sc.
func identityWitness(sc Scenario) (backend_witness.Witness, backend_witness.Witness, error) {
	w, err := frontend.NewWitness(newIdentityAssignment(sc), ecc.BN254.ScalarField())
	if err != nil {
		return nil, nil, fmt.Errorf("new witness: %w", err)
	}
	pub, err := w.Public()
	if err != nil {
		return nil, nil, fmt.Errorf("public witness: %w", err)
	}
	return w, pub, nil
}

// writeSolidityVerifier writes gnark's Groth16 Solidity verifier for vk.
func writeSolidityVerifier(vk groth16.VerifyingKey, dir string) error {
	f, err := os.Create(filepath.Join(dir, "Verifier.sol"))
	if err != nil {
		return fmt.Errorf("create Verifier.sol: %w", err)
	}
	defer f.Close()
	if err := vk.ExportSolidity(f); err != nil {
		return fmt.Errorf("export solidity: %w", err)
	}
	return nil
}

// SetupIdentityCircuit compiles the circuit and runs a single-party Groth16
// setup, writing ccs.bin, pk.bin, vk.bin, vk.json and Verifier.sol to dir.
// Existing setup files are kept unless force is set; the returned bool
// reports whether a new setup was written.
func SetupIdentityCircuit(dir string, sc Scenario, force bool) (bool, error) {
	if !force && SetupFilesExist(dir) {
		return false, nil
	}

	ccs, err := CompileIdentityCircuit(sc)
	if err != nil {
		return false, err
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return false, fmt.Errorf("setup: %w", err)
	}
	if err := SaveSetupFiles(ccs, pk, vk, dir); err != nil {
		return false, fmt.Errorf("save setup: %w", err)
	}
	if err := ExportVKOnly(vk, dir); err != nil {
		return false, fmt.Errorf("export vk: %w", err)
	}
	if err := writeSolidityVerifier(vk, dir); err != nil {
		return false, err
	}
	return true, nil
}

// proveAndExport proves sc against (ccs, pk), verifies with vk, and writes the
// JSON and binary artefacts to outDir.
func proveAndExport(ccs constraint.ConstraintSystem, pk groth16.ProvingKey, vk groth16.VerifyingKey, sc Scenario, outDir string, verify bool) error {
	witness, publicWitness, err := identityWitness(sc)
	if err != nil {
		return err
	}

	proof, err := groth16.Prove(ccs, pk, witness)
	if err != nil {
		return fmt.Errorf("prove: %w", err)
	}
	if verify {
		if err := groth16.Verify(proof, vk, publicWitness); err != nil {
			return fmt.Errorf("verify failed: %w", err)
		}
	}

	if err := ExportAll(vk, proof, publicWitness, outDir); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := SaveNativeFiles(vk, proof, publicWitness, outDir); err != nil {
		return fmt.Errorf("save native files: %w", err)
	}
	return nil
}

// ProveAndVerifyIdentity runs a throwaway setup, proves sc and verifies the
// proof, writing artefacts to outDir.
func ProveAndVerifyIdentity(sc Scenario, outDir string) error {
	ccs, err := CompileIdentityCircuit(sc)
	if err != nil {
		return err
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	return proveAndExport(ccs, pk, vk, sc, outDir, true)
}

// ProveIdentityFromSetup proves sc with the keys in setupDir. Only A, B and
// the inputs are taken from sc; the other scalars are the ones the setup was
// compiled for, and proving fails if sc does not satisfy them.
func ProveIdentityFromSetup(setupDir, outDir string, sc Scenario, verify bool) error {
	if !SetupFilesExist(setupDir) {
		return fmt.Errorf("no setup in %s (run setup first)", setupDir)
	}
	ccs, pk, vk, err := LoadSetupFiles(setupDir)
	if err != nil {
		return fmt.Errorf("load setup: %w", err)
	}
	return proveAndExport(ccs, pk, vk, sc, outDir, verify)
}
