package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSource(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.fp")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("failed to write fixture source: %v", err)
	}
	return path
}

func TestRun_HelpExitsZero(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{"-h"}, strings.NewReader(""), &out, &errOut)
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d (stderr: %s)", code, errOut.String())
	}
	if !strings.Contains(out.String(), "usage: farpy") {
		t.Fatalf("expected usage text, got:\n%s", out.String())
	}
}

func TestRun_VersionExitsZero(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{"-v"}, strings.NewReader(""), &out, &errOut)
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if !strings.Contains(out.String(), "farpy") {
		t.Fatalf("expected a version string, got:\n%s", out.String())
	}
}

func TestRun_TargetHelpExitsZero(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{"--targeth"}, strings.NewReader(""), &out, &errOut)
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if !strings.Contains(out.String(), "x86_64") {
		t.Fatalf("expected a sample target triple, got:\n%s", out.String())
	}
}

func TestRun_MissingInputFileExits255(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{}, strings.NewReader(""), &out, &errOut)
	if code != 255 {
		t.Fatalf("expected exit code 255, got %d", code)
	}
}

func TestRun_NonexistentFileExits255(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{"/no/such/file.fp"}, strings.NewReader(""), &out, &errOut)
	if code != 255 {
		t.Fatalf("expected exit code 255, got %d", code)
	}
}

func TestRun_SemanticErrorExits255(t *testing.T) {
	path := writeSource(t, "new x = undefined_name")
	var out, errOut bytes.Buffer
	code := run([]string{path}, strings.NewReader(""), &out, &errOut)
	if code != 255 {
		t.Fatalf("expected exit code 255, got %d (stderr: %s)", code, errOut.String())
	}
}

func TestRun_EmitLLVMIRWritesDotLLFile(t *testing.T) {
	path := writeSource(t, "new x = 1 + 2")
	var out, errOut bytes.Buffer
	code := run([]string{"--emit-llvm-ir", path}, strings.NewReader(""), &out, &errOut)
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d (stderr: %s)", code, errOut.String())
	}
	ir, err := os.ReadFile(path + ".ll")
	if err != nil {
		t.Fatalf("expected a .ll file to be written: %v", err)
	}
	if !strings.Contains(string(ir), "define i32 @main()") {
		t.Fatalf("expected synthesized main in IR, got:\n%s", ir)
	}
}

func TestRun_ASTJSONWritesParsableJSON(t *testing.T) {
	path := writeSource(t, "new x = 1")
	dir := filepath.Dir(path)
	astPath := filepath.Join(dir, "ast.json")
	var out, errOut bytes.Buffer
	code := run([]string{"--ast-json", "--ast-json-save", astPath, path}, strings.NewReader(""), &out, &errOut)
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d (stderr: %s)", code, errOut.String())
	}
	data, err := os.ReadFile(astPath)
	if err != nil {
		t.Fatalf("expected an ast.json file: %v", err)
	}
	var nodes []map[string]interface{}
	if err := json.Unmarshal(data, &nodes); err != nil {
		t.Fatalf("expected valid JSON, got error %v on:\n%s", err, data)
	}
}
