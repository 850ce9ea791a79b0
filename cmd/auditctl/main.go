// Command auditctl verifies an audit log offline. It points at a data
// directory, replays every chain and prints a JSON report covering
// integrity, genesis gaps, duplicates and timestamp ordering. Operators
// run it against device exports during an investigation, without the
// daemon.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"charak/internal/audit"
	"charak/internal/keys"
	"charak/internal/platform/logger"
)

type report struct {
	Verification audit.VerificationResult `json:"verification"`
	Gaps         audit.GapAnalysis        `json:"gaps"`
	Duplicates   audit.DuplicateAnalysis  `json:"duplicates"`
	Order        audit.OrderAnalysis      `json:"order"`
}

func main() {
	if err := run(); err != nil {
		os.Stderr.WriteString("auditctl: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	dataDir := flag.String("data-dir", "./data", "device data directory to verify")
	encounterID := flag.String("encounter", "", "verify a single encounter instead of the whole log")
	logLevel := flag.String("log-level", "error", "log verbosity during verification")
	flag.Parse()

	sealSecret := os.Getenv("CHARAK_SEAL_SECRET")
	if sealSecret == "" {
		return fmt.Errorf("CHARAK_SEAL_SECRET is required to unseal chain keys")
	}

	ctx := context.Background()
	log := logger.New(*logLevel)

	keystore, err := keys.NewFileKeystore(filepath.Join(*dataDir, "keys"), []byte(sealSecret))
	if err != nil {
		return err
	}
	manager := keys.NewManager(keystore,
		keys.NewFileMetadataStore(filepath.Join(*dataDir, "keys-meta")), log)

	store := audit.NewFileStore(filepath.Join(*dataDir, "audit"))
	markers := audit.NewFileMarkerStore(filepath.Join(*dataDir, "markers"))
	verifier := audit.NewVerifier(store, manager, log,
		audit.WithVerifierMarkers(markers))
	genesis := audit.NewGenesisManager(markers, log)

	var out report

	if *encounterID != "" {
		out.Verification, err = verifier.VerifyEncounter(ctx, *encounterID)
	} else {
		out.Verification, err = verifier.VerifyChain(ctx)
	}
	if err != nil {
		return err
	}

	if out.Gaps, err = genesis.AnalyzeGaps(ctx); err != nil {
		return err
	}
	if out.Duplicates, err = verifier.AnalyzeDuplicates(ctx); err != nil {
		return err
	}
	if out.Order, err = verifier.AnalyzeOrder(ctx); err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}

	if !out.Verification.IsValid {
		os.Exit(2)
	}
	return nil
}
