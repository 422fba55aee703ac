// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestWithComponentTagsOutput(t *testing.T) {
	var buf bytes.Buffer
	SetRoot(New(Config{Output: &buf, Level: LevelDebug}))

	WithComponent("dhcp").Info("lease issued", "mac", "aa:bb:cc:dd:ee:ff")

	if !strings.Contains(buf.String(), "dhcp") {
		t.Errorf("expected component tag in output, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "lease issued") {
		t.Errorf("expected message in output, got %q", buf.String())
	}
}

func TestWithErrorAttachesMessage(t *testing.T) {
	var buf bytes.Buffer
	SetRoot(New(Config{Output: &buf, Level: LevelDebug}))

	WithComponent("arp").WithError(nil).Warn("no-op on nil error")
	if !strings.Contains(buf.String(), "no-op on nil error") {
		t.Errorf("expected message in output, got %q", buf.String())
	}
}
