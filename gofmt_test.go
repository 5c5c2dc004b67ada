package repotest

import (
	"bytes"
	"os"
	"os/exec"
	"strings"
	"testing"
)

// sourceDirs are the module's own Go trees. Reference material under
// underscore directories is not ours to format.
var sourceDirs = []string{"cmd", "internal"}

func TestGofmtClean(t *testing.T) {
	gofmt, err := exec.LookPath("gofmt")
	if err != nil {
		t.Skip("gofmt not on PATH")
	}
	repoRoot, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}

	cmd := exec.Command(gofmt, append([]string{"-l"}, sourceDirs...)...)
	cmd.Dir = repoRoot
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		t.Fatalf("gofmt -l failed: %v: %s", err, strings.TrimSpace(output.String()))
	}

	if bad := strings.TrimSpace(output.String()); bad != "" {
		t.Fatalf("gofmt required for:\n%s", bad)
	}
}
