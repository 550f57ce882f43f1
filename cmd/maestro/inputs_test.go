package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeInputs(t *testing.T, raw string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inputs.yaml")
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadInputsSignalsPassthrough(t *testing.T) {
	raw := `
catalog:
  - provider: alpha
    model: alpha-free-mini
    status: active
    context_tokens: 128000
signals:
  alpha/alpha-free-mini:
    quality: 0.8
    latency_ms: 900
    price_usd: 0.4
`
	in, err := loadInputs(writeInputs(t, raw))
	if err != nil {
		t.Fatalf("loadInputs: %v", err)
	}

	sig, ok := in.Signals["alpha/alpha-free-mini"]
	if !ok {
		t.Fatal("signals key not parsed")
	}
	if sig.Quality != 0.8 || sig.LatencyMS != 900 || sig.PriceUSD != 0.4 {
		t.Errorf("signal = %+v, want quality 0.8, latency 900, price 0.4", sig)
	}

	ai := in.Assembler()
	if ai.Signals["alpha/alpha-free-mini"] != sig {
		t.Error("Assembler() must carry signals through to the engine")
	}
}

func TestLoadInputsEmptyCatalogRejected(t *testing.T) {
	if _, err := loadInputs(writeInputs(t, "policy:\n  billing: hybrid\n")); err == nil {
		t.Fatal("empty catalog must be rejected")
	}
}
