package credstore

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeHelper writes a shell script that swallows its request frame and
// replies with the given response. It returns the script path and the
// file the request frame is captured into.
func fakeHelper(t *testing.T, resp Response) (helperPath, requestPath string) {
	t.Helper()

	dir := t.TempDir()

	var buf bytes.Buffer
	if err := writeFrame(&buf, resp); err != nil {
		t.Fatalf("failed to encode response frame: %v", err)
	}
	respPath := filepath.Join(dir, "resp.bin")
	if err := os.WriteFile(respPath, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	requestPath = filepath.Join(dir, "req.bin")
	helperPath = filepath.Join(dir, "helper.sh")
	script := "#!/bin/sh\ncat > " + requestPath + "\ncat " + respPath + "\n"
	if err := os.WriteFile(helperPath, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return helperPath, requestPath
}

// capturedRequest decodes the request frame a fake helper received.
func capturedRequest(t *testing.T, path string) request {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("helper captured no request: %v", err)
	}
	if len(data) < 4 {
		t.Fatalf("request frame too short: %d bytes", len(data))
	}
	length := binary.LittleEndian.Uint32(data[:4])
	if int(length) != len(data)-4 {
		t.Fatalf("frame length %d does not match payload %d", length, len(data)-4)
	}

	var req request
	if err := json.Unmarshal(data[4:], &req); err != nil {
		t.Fatalf("failed to parse request frame: %v", err)
	}
	return req
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := writeFrame(&buf, Response{Status: "success", Pat: "ghp_abc"}); err != nil {
		t.Fatalf("writeFrame() unexpected error: %v", err)
	}

	resp, err := readFrame(&buf)
	if err != nil {
		t.Fatalf("readFrame() unexpected error: %v", err)
	}
	if resp.Status != "success" || resp.Pat != "ghp_abc" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestReadFrame_BadLength(t *testing.T) {
	zero := []byte{0, 0, 0, 0}
	if _, err := readFrame(bytes.NewReader(zero)); err == nil {
		t.Error("expected error for zero-length frame")
	}

	huge := []byte{0xff, 0xff, 0xff, 0xff}
	if _, err := readFrame(bytes.NewReader(huge)); err == nil {
		t.Error("expected error for oversized frame")
	}
}

func TestReadFrame_Truncated(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(100))
	buf.WriteString(`{"status":"success"}`)

	if _, err := readFrame(&buf); err == nil {
		t.Error("expected error for truncated payload")
	}
}

func TestToken_FromHelper(t *testing.T) {
	helper, reqPath := fakeHelper(t, Response{Status: "success", Pat: "ghp_helper"})
	t.Setenv("GITHUB_TOKEN", "ghp_env")

	token, err := New(helper).Token()
	if err != nil {
		t.Fatalf("Token() unexpected error: %v", err)
	}
	if token != "ghp_helper" {
		t.Errorf("expected helper token to win, got %q", token)
	}

	req := capturedRequest(t, reqPath)
	if req.Cmd != "get" {
		t.Errorf("expected get command, got %q", req.Cmd)
	}
	if req.Pat != "" {
		t.Error("get request must not carry a token")
	}
}

func TestToken_EnvFallback(t *testing.T) {
	t.Setenv(HelperEnvVar, "")
	t.Setenv("GITHUB_TOKEN", "  ghp_env\n")

	token, err := New("").Token()
	if err != nil {
		t.Fatalf("Token() unexpected error: %v", err)
	}
	if token != "ghp_env" {
		t.Errorf("expected trimmed env token, got %q", token)
	}
}

func TestToken_BrokenHelperFallsBack(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "ghp_env")

	token, err := New(filepath.Join(t.TempDir(), "missing-helper")).Token()
	if err != nil {
		t.Fatalf("Token() unexpected error: %v", err)
	}
	if token != "ghp_env" {
		t.Errorf("expected env fallback, got %q", token)
	}
}

func TestToken_NoSource(t *testing.T) {
	t.Setenv(HelperEnvVar, "")
	t.Setenv("GITHUB_TOKEN", "")

	_, err := New("").Token()
	if !errors.Is(err, ErrNoToken) {
		t.Errorf("expected ErrNoToken, got %v", err)
	}
}

func TestSet(t *testing.T) {
	helper, reqPath := fakeHelper(t, Response{Status: "success"})

	if err := New(helper).Set("ghp_new"); err != nil {
		t.Fatalf("Set() unexpected error: %v", err)
	}

	req := capturedRequest(t, reqPath)
	if req.Cmd != "set" {
		t.Errorf("expected set command, got %q", req.Cmd)
	}
	if req.Pat != "ghp_new" {
		t.Errorf("expected token in request, got %q", req.Pat)
	}
}

func TestSet_EmptyToken(t *testing.T) {
	helper, reqPath := fakeHelper(t, Response{Status: "success"})

	if err := New(helper).Set("   "); err == nil {
		t.Error("expected error for blank token")
	}
	if _, err := os.Stat(reqPath); err == nil {
		t.Error("blank token must never reach the helper")
	}
}

func TestSet_HelperRefuses(t *testing.T) {
	helper, _ := fakeHelper(t, Response{Status: "error", Error: "keyring locked"})

	err := New(helper).Set("ghp_new")
	if err == nil || !strings.Contains(err.Error(), "keyring locked") {
		t.Errorf("expected helper error surfaced, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	helper, reqPath := fakeHelper(t, Response{Status: "success"})

	if err := New(helper).Remove(); err != nil {
		t.Fatalf("Remove() unexpected error: %v", err)
	}
	if req := capturedRequest(t, reqPath); req.Cmd != "remove" {
		t.Errorf("expected remove command, got %q", req.Cmd)
	}
}

func TestHealth(t *testing.T) {
	helper, _ := fakeHelper(t, Response{Status: "success", KeyringBackend: "secretservice", Version: "1.0"})

	backend, err := New(helper).Health()
	if err != nil {
		t.Fatalf("Health() unexpected error: %v", err)
	}
	if backend != "secretservice" {
		t.Errorf("expected backend name, got %q", backend)
	}
}

func TestRoundTrip_NoHelper(t *testing.T) {
	t.Setenv(HelperEnvVar, "")

	if _, err := New("").Health(); err == nil {
		t.Error("expected error when no helper is configured")
	}
}
