package version

import (
	"strings"
	"testing"
)

func TestGetInfo(t *testing.T) {
	info := GetInfo()

	// Version should always be set
	if info.Version == "" {
		t.Error("Version should not be empty")
	}

	// Platform should be set
	if !strings.Contains(info.Platform, "/") {
		t.Error("Platform should contain OS/ARCH format")
	}

	// Go version should be set
	if !strings.HasPrefix(info.GoVersion, "go") {
		t.Error("GoVersion should start with 'go'")
	}
}

func TestGetVersionString(t *testing.T) {
	versionStr := GetVersionString()

	if !strings.Contains(versionStr, "breeze") {
		t.Error("Version string should contain 'breeze'")
	}

	if !strings.Contains(versionStr, Version) {
		t.Error("Version string should contain the version number")
	}
}

func TestGetDetailedVersionString(t *testing.T) {
	detailed := GetDetailedVersionString()

	expectedFields := []string{
		"breeze",
		"Git commit:",
		"Git branch:",
		"Build date:",
		"Go version:",
		"Platform:",
	}

	for _, field := range expectedFields {
		if !strings.Contains(detailed, field) {
			t.Errorf("Detailed version should contain '%s'", field)
		}
	}
}

func TestIsRelease(t *testing.T) {
	// With the defaults (GitCommit unknown) this is a dev build
	if GitCommit == "unknown" && IsRelease() {
		t.Error("Dev build should not report as release")
	}
}
