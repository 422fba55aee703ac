// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	nserrors "grimm.is/netsim/internal/errors"
)

const minimalHCL = `
schema_version = "1.0"

node "pc1" {
  kind       = "pc"
  interfaces = ["eth0"]
  gateway    = "10.0.0.1"
}

node "sw1" {
  kind = "switch"
}

link "pc1" "sw1" {
  length_meters = 2
}

dhcp {
  server_node = "sw1"

  pool "office" {
    gateway = "10.0.0.1"
    netmask = "255.255.255.0"
    start   = "10.0.0.100"
    end     = "10.0.0.200"
  }
}
`

func TestLoadFromBytesMergesOverDefaults(t *testing.T) {
	f, err := LoadFromBytes("topology.hcl", []byte(minimalHCL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.Config.Engine == nil {
		t.Fatal("expected Engine to be populated from Default()")
	}
	if f.Config.Engine.ArpTtlMs != 60_000 {
		t.Errorf("expected default ArpTtlMs to survive merge, got %v", f.Config.Engine.ArpTtlMs)
	}
	if len(f.Config.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(f.Config.Nodes))
	}
	if f.Config.DHCP == nil || f.Config.DHCP.ServerNode != "sw1" {
		t.Fatal("expected dhcp block to be decoded")
	}
	if len(f.Config.DHCP.Pools) != 1 || f.Config.DHCP.Pools[0].Name != "office" {
		t.Fatal("expected the office pool block to be decoded")
	}
}

func TestLoadFromBytesRejectsMalformedHCL(t *testing.T) {
	if _, err := LoadFromBytes("bad.hcl", []byte(`node "pc1" {`)); err == nil {
		t.Fatal("expected an error for unterminated HCL block")
	}
}

func TestReloadDetectsNoOpWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "topology.hcl")
	if err := os.WriteFile(path, []byte(minimalHCL), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Rewrite with byte-identical content: should report unchanged.
	if err := os.WriteFile(path, []byte(minimalHCL), 0o644); err != nil {
		t.Fatal(err)
	}
	changed, err := f.Reload()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if changed {
		t.Error("expected Reload to report no change for byte-identical rewrite")
	}

	// Now change a value: should report changed.
	edited := strings.Replace(minimalHCL, "10.0.0.200", "10.0.0.250", 1)
	if err := os.WriteFile(path, []byte(edited), 0o644); err != nil {
		t.Fatal(err)
	}
	changed, err = f.Reload()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !changed {
		t.Error("expected Reload to report a change after editing the pool's end")
	}
	if f.Config.DHCP.Pools[0].End != "10.0.0.250" {
		t.Errorf("expected reloaded config to reflect new pool end, got %q", f.Config.DHCP.Pools[0].End)
	}
}

func TestLoadMissingFileReturnsFormatError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.hcl"))
	if err == nil {
		t.Fatal("expected an error loading a nonexistent file")
	}
	if nserrors.GetKind(err) != nserrors.KindFormat {
		t.Fatalf("expected a format error, got kind %v", nserrors.GetKind(err))
	}
}

func TestWatchInvokesCallbackOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "topology.hcl")
	if err := os.WriteFile(path, []byte(minimalHCL), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reloaded := make(chan *File, 1)
	w, err := Watch(f, func(nf *File) { reloaded <- nf })
	if err != nil {
		t.Fatalf("unexpected error starting watch: %v", err)
	}
	defer w.Close()

	edited := minimalHCL[:len(minimalHCL)-1] + `

node "pc2" {
  kind = "pc"
}
`
	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(path, []byte(edited), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-reloaded:
	case <-time.After(2 * time.Second):
		t.Fatal("expected onReload to fire after file edit")
	}
}
