package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joseph-ayodele/contracts-analyzer/constants"
	"github.com/joseph-ayodele/contracts-analyzer/internal/common"
	"github.com/joseph-ayodele/contracts-analyzer/internal/entity"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestJurisdictionCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contract.txt")
	text := "This Agreement is governed by the laws of England and Wales. The Arbitration Act 1996 applies. Fees of £2,000."
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, args := range [][]string{{"jurisdiction", path}, {"jurisdiction", "-"}} {
		out, err := execute(t, text, args...)
		if err != nil {
			t.Fatalf("%v: %v", args, err)
		}
		var label entity.JurisdictionLabel
		if err := json.Unmarshal([]byte(out), &label); err != nil {
			t.Fatalf("decode %q: %v", out, err)
		}
		if label.Jurisdiction != constants.JurisdictionUK {
			t.Errorf("%v: jurisdiction = %s", args, label.Jurisdiction)
		}
	}
}

func TestAnalyzeRequiresTextProvider(t *testing.T) {
	for _, k := range []string{"OPENAI_API_KEY", "OPENAI_API_KEY_ALT", "GEMINI_API_KEY", "GROQ_API_KEY", "CONFIG_FILE"} {
		t.Setenv(k, "")
	}
	path := filepath.Join(t.TempDir(), "a.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := execute(t, "", "analyze", path)
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != common.CodeConfig {
		t.Fatalf("err = %v, want %s", err, common.CodeConfig)
	}
}

func TestCommandsRequireOneArgument(t *testing.T) {
	for _, name := range []string{"analyze", "extract", "jurisdiction", "batch"} {
		if _, err := execute(t, "", name); err == nil {
			t.Errorf("%s without a file should fail", name)
		}
	}
}

func TestReadDocumentDeclaresFormatFromExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Scan.JPG")
	if err := os.WriteFile(path, []byte{0xff, 0xd8, 0xff}, 0o644); err != nil {
		t.Fatal(err)
	}
	in, err := readDocument(path)
	if err != nil {
		t.Fatal(err)
	}
	if in.Name != "Scan.JPG" || in.Format != constants.FormatImage || len(in.Data) != 3 {
		t.Errorf("input = %s %s %d", in.Name, in.Format, len(in.Data))
	}
}

func TestBatchSkipsNonContracts(t *testing.T) {
	for _, k := range []string{"OPENAI_API_KEY_ALT", "GEMINI_API_KEY", "GROQ_API_KEY", "CONFIG_FILE", "REDIS_ADDR", "S3_ENDPOINT"} {
		t.Setenv(k, "")
	}
	t.Setenv("OPENAI_API_KEY", "test-key")
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a contract"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "", "batch", "--inmem", dir)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	var summary batchSummary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if summary.Processed != 0 || summary.Failed != 0 || len(summary.Results) != 0 {
		t.Errorf("summary = %+v", summary)
	}
	if summary.Scan.Matched != 0 || summary.Scan.Scanned != 1 {
		t.Errorf("scan = %+v", summary.Scan)
	}
}
