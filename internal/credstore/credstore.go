// Package credstore resolves the GitHub personal access token. The
// primary source is a local keychain helper process speaking a
// length-prefixed JSON request/response protocol over stdin/stdout;
// the GITHUB_TOKEN environment variable is the fallback.
//
// The helper protocol is one request per invocation: commands are
// get, set, remove and health, responses carry a status of success or
// error plus command-specific fields. Secret values are never logged.
package credstore

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/rgopal/ghmark/internal/logger"
)

// ErrNoToken is returned when no token could be resolved from any source.
var ErrNoToken = fmt.Errorf("no GitHub token found: connect the keychain helper with 'ghmark auth set', or set GITHUB_TOKEN")

// maxFrameSize bounds a single protocol frame. Helper responses are
// small; anything bigger is a framing error.
const maxFrameSize = 1 << 20

// HelperEnvVar names the environment variable pointing at the keychain
// helper binary.
const HelperEnvVar = "GHMARK_KEYCHAIN_HELPER"

type request struct {
	Cmd string `json:"cmd"`
	Pat string `json:"pat,omitempty"`
}

// Response is a keychain helper reply.
type Response struct {
	Status         string `json:"status"`
	Message        string `json:"message,omitempty"`
	Error          string `json:"error,omitempty"`
	Pat            string `json:"pat,omitempty"`
	KeyringBackend string `json:"keyring_backend,omitempty"`
	Version        string `json:"version,omitempty"`
}

// Store talks to the keychain helper.
type Store struct {
	helperPath string
}

// New creates a store using the given helper binary. An empty path
// falls back to the GHMARK_KEYCHAIN_HELPER environment variable.
func New(helperPath string) *Store {
	if helperPath == "" {
		helperPath = os.Getenv(HelperEnvVar)
	}
	return &Store{helperPath: helperPath}
}

// Token resolves the personal access token:
// 1. ask the keychain helper, if configured
// 2. fall back to the GITHUB_TOKEN environment variable
func (s *Store) Token() (string, error) {
	if s.helperPath != "" {
		resp, err := s.roundTrip(request{Cmd: "get"})
		if err != nil {
			logger.Warn("credstore: keychain helper unavailable: %v", err)
		} else if resp.Status == "success" && resp.Pat != "" {
			return resp.Pat, nil
		} else if resp.Error != "" {
			logger.Debug("credstore: helper get failed: %s", resp.Error)
		}
	}

	if token := strings.TrimSpace(os.Getenv("GITHUB_TOKEN")); token != "" {
		return token, nil
	}

	return "", ErrNoToken
}

// Set stores the token in the keychain via the helper.
func (s *Store) Set(pat string) error {
	if strings.TrimSpace(pat) == "" {
		return fmt.Errorf("token must not be empty")
	}
	resp, err := s.roundTrip(request{Cmd: "set", Pat: pat})
	if err != nil {
		return err
	}
	if resp.Status != "success" {
		return fmt.Errorf("keychain helper refused to store token: %s", resp.Error)
	}
	return nil
}

// Remove deletes the stored token.
func (s *Store) Remove() error {
	resp, err := s.roundTrip(request{Cmd: "remove"})
	if err != nil {
		return err
	}
	if resp.Status != "success" {
		return fmt.Errorf("keychain helper failed to remove token: %s", resp.Error)
	}
	return nil
}

// Health checks the helper and reports its keyring backend name.
func (s *Store) Health() (string, error) {
	resp, err := s.roundTrip(request{Cmd: "health"})
	if err != nil {
		return "", err
	}
	if resp.Status != "success" {
		return "", fmt.Errorf("keychain helper unhealthy: %s", resp.Error)
	}
	return resp.KeyringBackend, nil
}

// roundTrip runs the helper once, writes a single request frame and
// reads a single response frame. The helper never touches the network.
func (s *Store) roundTrip(req request) (*Response, error) {
	if s.helperPath == "" {
		return nil, fmt.Errorf("no keychain helper configured: set %s", HelperEnvVar)
	}

	logger.Debug("credstore: sending %q to keychain helper", req.Cmd)

	var in bytes.Buffer
	if err := writeFrame(&in, req); err != nil {
		return nil, err
	}

	cmd := exec.Command(s.helperPath)
	cmd.Stdin = &in
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = io.Discard

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("keychain helper failed: %w", err)
	}

	resp, err := readFrame(&out)
	if err != nil {
		return nil, fmt.Errorf("keychain helper sent a bad response: %w", err)
	}
	return resp, nil
}

// writeFrame encodes v as JSON prefixed with a 4-byte little-endian
// length, the framing the native messaging protocol uses.
func writeFrame(w io.Writer, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(payload))); err != nil {
		return fmt.Errorf("failed to write frame length: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// readFrame reads one length-prefixed JSON response.
func readFrame(r io.Reader) (*Response, error) {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return nil, fmt.Errorf("failed to read frame length: %w", err)
	}
	if length == 0 || length > maxFrameSize {
		return nil, fmt.Errorf("invalid frame length %d", length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("failed to read frame: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse frame: %w", err)
	}
	return &resp, nil
}
