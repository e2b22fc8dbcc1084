// Copyright (C) 2025 Logical Mechanism LLC
// SPDX-License-Identifier: GPL-3.0-only
//
// export.go

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/consensys/gnark/backend/groth16"
	groth16bn254 "github.com/consensys/gnark/backend/groth16/bn254"
	backend_witness "github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/constraint"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ---------- JSON shapes ----------

// G1JSON is an affine G1 point with decimal coordinates.
type G1JSON struct {
	X string `json:"x"`
	Y string `json:"y"`
}

// G2JSON is an affine G2 point with decimal coordinates, real part first.
type G2JSON struct {
	XRe string `json:"x_re"`
	XIm string `json:"x_im"`
	YRe string `json:"y_re"`
	YIm string `json:"y_im"`
}

type VKJSON struct {
	NPublic int      `json:"nPublic"`
	Alpha   G1JSON   `json:"alpha"`
	Beta    G2JSON   `json:"beta"`
	Gamma   G2JSON   `json:"gamma"`
	Delta   G2JSON   `json:"delta"`
	IC      []G1JSON `json:"ic"` // len = nPublic+1
}

type ProofJSON struct {
	A G1JSON `json:"a"`
	B G2JSON `json:"b"`
	C G1JSON `json:"c"`
	// Calldata is the proof as the exported Solidity verifier takes it.
	Calldata string `json:"calldata"`
}

type PublicJSON struct {
	Inputs []string `json:"inputs"` // decimal strings in Fr
}

func g1JSON(p bn254.G1Affine) G1JSON {
	return G1JSON{X: fpDec(p.X), Y: fpDec(p.Y)}
}

func g2JSON(p bn254.G2Affine) G2JSON {
	return G2JSON{
		XRe: fpDec(p.X.A0),
		XIm: fpDec(p.X.A1),
		YRe: fpDec(p.Y.A0),
		YIm: fpDec(p.Y.A1),
	}
}

func (g G1JSON) point() (bn254.G1Affine, error) { return parseG1Dec(g.X, g.Y) }

func (g G2JSON) point() (bn254.G2Affine, error) { return parseG2Dec(g.XRe, g.XIm, g.YRe, g.YIm) }

// ---------- extract proof/vk using concrete BN254 Groth16 types ----------

func exportProof(proof groth16.Proof) (ProofJSON, error) {
	p, ok := proof.(*groth16bn254.Proof)
	if !ok {
		return ProofJSON{}, fmt.Errorf("unexpected proof type (need *groth16/bn254.Proof): %T", proof)
	}
	if len(p.Commitments) > 0 {
		return ProofJSON{}, fmt.Errorf("proofs with commitments are not exported")
	}
	return ProofJSON{
		A:        g1JSON(p.Ar),
		B:        g2JSON(p.Bs),
		C:        g1JSON(p.Krs),
		Calldata: hexutil.Encode(p.MarshalSolidity()),
	}, nil
}

func exportVK(vk groth16.VerifyingKey) (VKJSON, error) {
	v, ok := vk.(*groth16bn254.VerifyingKey)
	if !ok {
		return VKJSON{}, fmt.Errorf("unexpected vk type (need *groth16/bn254.VerifyingKey): %T", vk)
	}
	if len(v.CommitmentKeys) > 0 {
		return VKJSON{}, fmt.Errorf("verifying keys with commitments are not exported")
	}
	if len(v.G1.K) < 1 {
		return VKJSON{}, fmt.Errorf("invalid vk: IC empty")
	}

	ic := make([]G1JSON, len(v.G1.K))
	for i := range v.G1.K {
		ic[i] = g1JSON(v.G1.K[i])
	}
	return VKJSON{
		NPublic: len(v.G1.K) - 1,
		Alpha:   g1JSON(v.G1.Alpha),
		Beta:    g2JSON(v.G2.Beta),
		Gamma:   g2JSON(v.G2.Gamma),
		Delta:   g2JSON(v.G2.Delta),
		IC:      ic,
	}, nil
}

// exportPublicInputs returns the public witness vector as decimal strings, in
// gnark's order.
func exportPublicInputs(publicWitness backend_witness.Witness) ([]string, error) {
	vec, ok := publicWitness.Vector().(fr.Vector)
	if !ok {
		return nil, fmt.Errorf("unexpected public witness vector type %T", publicWitness.Vector())
	}
	out := make([]string, len(vec))
	for i := range vec {
		out[i] = vec[i].String()
	}
	return out, nil
}

// ---------- main export ----------

func ExportAll(vk groth16.VerifyingKey, proof groth16.Proof, publicWitness backend_witness.Witness, dir string) error {
	pj, err := exportProof(proof)
	if err != nil {
		return err
	}
	pub, err := exportPublicInputs(publicWitness)
	if err != nil {
		return err
	}
	vkj, err := exportVK(vk)
	if err != nil {
		return err
	}
	if len(vkj.IC) != len(pub)+1 {
		return fmt.Errorf("export invariant failed: len(vk.IC)=%d but %d public inputs", len(vkj.IC), len(pub))
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := writeJSON(dir, "vk.json", vkj); err != nil {
		return err
	}
	if err := writeJSON(dir, "proof.json", pj); err != nil {
		return err
	}
	return writeJSON(dir, "public.json", PublicJSON{Inputs: pub})
}

func writeJSON(dir, name string, val any) error {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(val); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// ---------- native binary save/load ----------

// writeBinary creates dir/name and streams v into it.
func writeBinary(dir, name string, v io.WriterTo) error {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer f.Close()
	if _, err := v.WriteTo(f); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// readBinary fills v from dir/name.
func readBinary(dir, name string, v io.ReaderFrom) error {
	f, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()
	if _, err := v.ReadFrom(f); err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	return nil
}

// SaveNativeFiles writes gnark's binary serialization of the VK, proof and
// public witness so they can be verified later without recompiling.
func SaveNativeFiles(vk groth16.VerifyingKey, proof groth16.Proof, publicWitness backend_witness.Witness, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := writeBinary(dir, "vk.bin", vk); err != nil {
		return err
	}
	if err := writeBinary(dir, "proof.bin", proof); err != nil {
		return err
	}
	return writeBinary(dir, "witness.bin", publicWitness)
}

// loadNativeFiles is the inverse of SaveNativeFiles.
func loadNativeFiles(dir string) (groth16.VerifyingKey, groth16.Proof, backend_witness.Witness, error) {
	vk := groth16.NewVerifyingKey(ecc.BN254)
	if err := readBinary(dir, "vk.bin", vk); err != nil {
		return nil, nil, nil, err
	}
	proof := groth16.NewProof(ecc.BN254)
	if err := readBinary(dir, "proof.bin", proof); err != nil {
		return nil, nil, nil, err
	}
	witness, err := backend_witness.New(ecc.BN254.ScalarField())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("new witness: %w", err)
	}
	if err := readBinary(dir, "witness.bin", witness); err != nil {
		return nil, nil, nil, err
	}
	return vk, proof, witness, nil
}

// VerifyFromFiles loads vk.bin, proof.bin and witness.bin from dir and runs
// gnark's verifier.
func VerifyFromFiles(dir string) error {
	vk, proof, witness, err := loadNativeFiles(dir)
	if err != nil {
		return err
	}
	if err := groth16.Verify(proof, vk, witness); err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}
	return nil
}

// ReExportJSON regenerates vk.json, proof.json and public.json from the
// binaries in dir.
func ReExportJSON(dir string) error {
	vk, proof, witness, err := loadNativeFiles(dir)
	if err != nil {
		return err
	}
	return ExportAll(vk, proof, witness, dir)
}

// ---------- setup files ----------

var setupFiles = []string{"ccs.bin", "pk.bin", "vk.bin"}

// SaveSetupFiles writes the compiled constraint system and the key pair.
func SaveSetupFiles(ccs constraint.ConstraintSystem, pk groth16.ProvingKey, vk groth16.VerifyingKey, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := writeBinary(dir, "ccs.bin", ccs); err != nil {
		return err
	}
	if err := writeBinary(dir, "pk.bin", pk); err != nil {
		return err
	}
	return writeBinary(dir, "vk.bin", vk)
}

// LoadSetupFiles reads what SaveSetupFiles wrote.
func LoadSetupFiles(dir string) (constraint.ConstraintSystem, groth16.ProvingKey, groth16.VerifyingKey, error) {
	ccs := groth16.NewCS(ecc.BN254)
	if err := readBinary(dir, "ccs.bin", ccs); err != nil {
		return nil, nil, nil, err
	}
	pk := groth16.NewProvingKey(ecc.BN254)
	if err := readBinary(dir, "pk.bin", pk); err != nil {
		return nil, nil, nil, err
	}
	vk := groth16.NewVerifyingKey(ecc.BN254)
	if err := readBinary(dir, "vk.bin", vk); err != nil {
		return nil, nil, nil, err
	}
	return ccs, pk, vk, nil
}

// ExportVKOnly writes vk.json right after setup, before any proof exists.
func ExportVKOnly(vk groth16.VerifyingKey, dir string) error {
	vkj, err := exportVK(vk)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return writeJSON(dir, "vk.json", vkj)
}

// SetupFilesExist reports whether ccs.bin, pk.bin and vk.bin are all in dir.
func SetupFilesExist(dir string) bool {
	for _, name := range setupFiles {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return false
		}
	}
	return true
}
