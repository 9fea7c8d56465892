package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/searchforge/hatchery/config"
)

// ValidScenario is a well-formed scenario body with two spawned blocks.
const ValidScenario = `
spawn-chance: 0.5
spawned-block:
  egg:
    block-type: dragon_egg
    block-data: ""
    weight: 3
  rod:
    block-type: end_rod
    block-data: "[facing=up]"
    weight: 1
`

// Indent prefixes every non-empty line of doc with n spaces.
func Indent(doc string, n int) string {
	pad := strings.Repeat(" ", n)
	lines := strings.Split(doc, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			lines[i] = pad + line
		}
	}
	return strings.Join(lines, "\n")
}

// Nest places body under key, e.g. Nest("first", ValidScenario).
func Nest(key, body string) string {
	return key + ":\n" + Indent(body, 2) + "\n"
}

// RootConfig renders a full document with the given scenario bodies.
func RootConfig(scenarios map[string]string) string {
	var b strings.Builder
	b.WriteString("debug-logging: false\nscenario:\n")
	for key, body := range scenarios {
		b.WriteString(Indent(Nest(key, body), 2))
	}
	return b.String()
}

// ParseConfig parses doc or fails the test.
func ParseConfig(t testing.TB, doc string) *config.Node {
	t.Helper()
	root, err := config.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("parse config: %v\n%s", err, doc)
	}
	return root
}

// WriteConfig writes doc to a file in a per-test temp dir and returns its path.
func WriteConfig(t testing.TB, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
