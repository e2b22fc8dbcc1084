// Copyright (C) 2025 Logical Mechanism LLC
// SPDX-License-Identifier: GPL-3.0-only

// ceremony.go runs a file-based two-phase MPC setup for the scalar identity
// circuit on BN254, on top of gnark's mpcsetup package:
//   - phase 1 (powers of tau) is circuit independent and ends in commons.bin
//   - phase 2 is circuit specific and ends in pk.bin / vk.bin
//
// Contributions are numbered files phase{1,2}_NNNN.bin; _0000 is the initial
// accumulator.
package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	mpcsetup "github.com/consensys/gnark/backend/groth16/bn254/mpcsetup"
	"github.com/consensys/gnark/constraint"
	cs "github.com/consensys/gnark/constraint/bn254"
)

func contributionPrefix(phase int) string { return fmt.Sprintf("phase%d_", phase) }

// findContributions returns the phase{N}_NNNN.bin files in dir, sorted.
func findContributions(dir string, phase int) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	prefix := contributionPrefix(phase)
	var names []string
	for _, e := range entries {
		if n := e.Name(); strings.HasPrefix(n, prefix) && strings.HasSuffix(n, ".bin") {
			names = append(names, n)
		}
	}
	slices.Sort(names)
	return names, nil
}

// latestContribution returns the name and index of the highest numbered file.
func latestContribution(dir string, phase int) (string, int, error) {
	names, err := findContributions(dir, phase)
	if err != nil {
		return "", 0, err
	}
	if len(names) == 0 {
		return "", 0, fmt.Errorf("no phase %d contributions found in %s", phase, dir)
	}
	last := names[len(names)-1]
	num := strings.TrimSuffix(strings.TrimPrefix(last, contributionPrefix(phase)), ".bin")
	idx, err := strconv.Atoi(num)
	if err != nil {
		return "", 0, fmt.Errorf("parse contribution index from %s: %w", last, err)
	}
	return last, idx, nil
}

func contributionName(phase, index int) string {
	return fmt.Sprintf("%s%04d.bin", contributionPrefix(phase), index)
}

// fileHash is the blake2b-256 of a file, hex encoded.
func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// loadContributions reads every file in names into a fresh T.
func loadContributions[T any, PT interface {
	*T
	io.ReaderFrom
}](dir string, names []string) ([]*T, error) {
	out := make([]*T, len(names))
	for i, n := range names {
		v := PT(new(T))
		if err := readBinary(dir, n, v); err != nil {
			return nil, err
		}
		out[i] = (*T)(v)
	}
	return out, nil
}

func loadR1CS(dir string) (*cs.R1CS, error) {
	ccs := groth16.NewCS(ecc.BN254)
	if err := readBinary(dir, "ccs.bin", ccs); err != nil {
		return nil, err
	}
	r1cs, ok := ccs.(*cs.R1CS)
	if !ok {
		return nil, fmt.Errorf("ccs is not *bn254.R1CS: %T", ccs)
	}
	return r1cs, nil
}

// domainSize is the FFT domain size for ccs.
func domainSize(ccs constraint.ConstraintSystem) uint64 {
	return ecc.NextPowerOfTwo(uint64(ccs.GetNbConstraints()))
}

// --- ceremony steps ---

// CeremonyInit compiles the circuit for sc, saves ccs.bin and writes the
// initial phase 1 accumulator. It returns the constraint count and domain
// size.
func CeremonyInit(dir string, sc Scenario, force bool) (int, uint64, error) {
	if _, err := os.Stat(filepath.Join(dir, "ccs.bin")); err == nil && !force {
		return 0, 0, fmt.Errorf("ceremony already initialized in %s (use -force to overwrite)", dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, 0, fmt.Errorf("mkdir: %w", err)
	}

	ccs, err := CompileIdentityCircuit(sc)
	if err != nil {
		return 0, 0, err
	}
	if err := writeBinary(dir, "ccs.bin", ccs); err != nil {
		return 0, 0, err
	}

	n := domainSize(ccs)
	if err := writeBinary(dir, contributionName(1, 0), mpcsetup.NewPhase1(n)); err != nil {
		return 0, 0, err
	}
	return ccs.GetNbConstraints(), n, nil
}

// contributor is implemented by *mpcsetup.Phase1 and *mpcsetup.Phase2.
type contributor interface {
	io.ReaderFrom
	io.WriterTo
	Contribute()
}

func contribute(dir string, phase int, fresh contributor) (int, string, error) {
	latest, idx, err := latestContribution(dir, phase)
	if err != nil {
		return 0, "", err
	}
	if err := readBinary(dir, latest, fresh); err != nil {
		return 0, "", fmt.Errorf("load latest phase%d: %w", phase, err)
	}

	fresh.Contribute()

	next := idx + 1
	name := contributionName(phase, next)
	if err := writeBinary(dir, name, fresh); err != nil {
		return 0, "", err
	}
	hash, err := fileHash(filepath.Join(dir, name))
	if err != nil {
		return next, "", fmt.Errorf("hash contribution: %w", err)
	}
	return next, hash, nil
}

// CeremonyContributePhase1 adds one phase 1 contribution and returns its index
// and file hash.
func CeremonyContributePhase1(dir string) (int, string, error) {
	return contribute(dir, 1, new(mpcsetup.Phase1))
}

// CeremonyContributePhase2 adds one phase 2 contribution and returns its index
// and file hash.
func CeremonyContributePhase2(dir string) (int, string, error) {
	return contribute(dir, 2, new(mpcsetup.Phase2))
}

// contributionNames returns every phase file after the initial one, or an
// error if there are none.
func contributionNames(dir string, phase int) ([]string, error) {
	names, err := findContributions(dir, phase)
	if err != nil {
		return nil, err
	}
	if len(names) < 2 {
		return nil, fmt.Errorf("need at least 1 contribution beyond the initial (found %d files)", len(names))
	}
	return names, nil
}

// CeremonyVerifyPhase1 checks every phase 1 contribution against its
// predecessor and returns how many were verified.
func CeremonyVerifyPhase1(dir string) (int, error) {
	names, err := contributionNames(dir, 1)
	if err != nil {
		return 0, err
	}
	ps, err := loadContributions[mpcsetup.Phase1](dir, names)
	if err != nil {
		return 0, err
	}
	for i := 1; i < len(ps); i++ {
		if err := ps[i-1].Verify(ps[i]); err != nil {
			return i - 1, fmt.Errorf("contribution %d invalid: %w", i, err)
		}
	}
	return len(ps) - 1, nil
}

// CeremonyVerifyPhase2 is CeremonyVerifyPhase1 for phase 2.
func CeremonyVerifyPhase2(dir string) (int, error) {
	names, err := contributionNames(dir, 2)
	if err != nil {
		return 0, err
	}
	ps, err := loadContributions[mpcsetup.Phase2](dir, names)
	if err != nil {
		return 0, err
	}
	for i := 1; i < len(ps); i++ {
		if err := ps[i-1].Verify(ps[i]); err != nil {
			return i - 1, fmt.Errorf("contribution %d invalid: %w", i, err)
		}
	}
	return len(ps) - 1, nil
}

// CeremonyFinalizePhase1 verifies and seals phase 1 with beacon, writes
// commons.bin and the initial phase 2 accumulator.
func CeremonyFinalizePhase1(dir string, beacon []byte) error {
	r1cs, err := loadR1CS(dir)
	if err != nil {
		return fmt.Errorf("load ccs: %w", err)
	}
	names, err := contributionNames(dir, 1)
	if err != nil {
		return err
	}
	ps, err := loadContributions[mpcsetup.Phase1](dir, names[1:])
	if err != nil {
		return err
	}

	commons, err := mpcsetup.VerifyPhase1(domainSize(r1cs), beacon, ps...)
	if err != nil {
		return fmt.Errorf("verify phase1: %w", err)
	}
	if err := writeBinary(dir, "commons.bin", &commons); err != nil {
		return err
	}

	var p2 mpcsetup.Phase2
	p2.Initialize(r1cs, &commons)
	return writeBinary(dir, contributionName(2, 0), &p2)
}

// CeremonyFinalizePhase2 verifies and seals phase 2 with beacon and writes
// pk.bin, vk.bin, vk.json and Verifier.sol. The result is a setup directory
// usable by prove.
func CeremonyFinalizePhase2(dir string, beacon []byte) error {
	r1cs, err := loadR1CS(dir)
	if err != nil {
		return fmt.Errorf("load ccs: %w", err)
	}
	var commons mpcsetup.SrsCommons
	if err := readBinary(dir, "commons.bin", &commons); err != nil {
		return fmt.Errorf("load commons: %w", err)
	}
	names, err := contributionNames(dir, 2)
	if err != nil {
		return err
	}
	ps, err := loadContributions[mpcsetup.Phase2](dir, names[1:])
	if err != nil {
		return err
	}

	pk, vk, err := mpcsetup.VerifyPhase2(r1cs, &commons, beacon, ps...)
	if err != nil {
		return fmt.Errorf("verify phase2: %w", err)
	}
	if err := writeBinary(dir, "pk.bin", pk); err != nil {
		return err
	}
	if err := writeBinary(dir, "vk.bin", vk); err != nil {
		return err
	}
	if err := ExportVKOnly(vk, dir); err != nil {
		return fmt.Errorf("export vk.json: %w", err)
	}
	return writeSolidityVerifier(vk, dir)
}
