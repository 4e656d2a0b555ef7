package planeio

import (
	"testing"

	"github.com/blang/semver"
)

func TestVersion(t *testing.T) {
	if Version.LT(semver.MustParse("0.4.0")) {
		t.Errorf("unexpected version %s", Version)
	}
	saved := gitVersion
	defer func() { gitVersion = saved }()
	gitVersion = ""
	if GitVersion() != "unknown" {
		t.Errorf("expected unknown git version, got %q", GitVersion())
	}
	gitVersion = "v0.4.1-3-gabcde"
	if GitVersion() != "v0.4.1-3-gabcde" {
		t.Errorf("git version not reported")
	}
}

func TestParseLogMode(t *testing.T) {
	for s, expected := range map[string]ModeFlag{"debug": DebugMode, "Warning": WarningMode, "SILENT": SilentMode} {
		m, err := ParseLogMode(s)
		if err != nil || m != expected {
			t.Errorf("%q: expected %d, got %d (%v)", s, expected, m, err)
		}
	}
	if _, err := ParseLogMode("chatty"); err == nil {
		t.Errorf("expected error for unknown level")
	}
}
