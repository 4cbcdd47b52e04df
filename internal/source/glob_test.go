package source

import "testing"

func TestMatcherBareNamePattern(t *testing.T) {
	m := NewMatcher([]string{"*.go"}, nil)
	cases := []struct {
		path string
		want bool
	}{
		{"main.go", true},
		{"internal/server/router.go", true},
		{"README.md", false},
		{"cmd/api/main.go", true},
	}
	for _, tc := range cases {
		if got := m.Match(tc.path); got != tc.want {
			t.Errorf("Match(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestMatcherExcludesWin(t *testing.T) {
	m := NewMatcher([]string{"*.go"}, []string{"vendor/**", "**/testdata/**"})
	if m.Match("vendor/github.com/pkg/errors/errors.go") {
		t.Error("vendor path should be excluded")
	}
	if m.Match("internal/source/testdata/fixture.go") {
		t.Error("testdata path should be excluded")
	}
	if !m.Match("internal/source/provider.go") {
		t.Error("regular path should match")
	}
}

func TestMatcherDoubleStarSegments(t *testing.T) {
	cases := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"docs/**", "docs/guide/intro.md", true},
		{"docs/**", "docs", false},
		{"**/migrations/*.sql", "internal/storage/db/migrations/001_init.sql", true},
		{"**/migrations/*.sql", "migrations/001_init.sql", true},
		{"src/**/*.ts", "src/app/main.ts", true},
		{"src/**/*.ts", "src/main.ts", true},
		{"src/**/*.ts", "lib/main.ts", false},
	}
	for _, tc := range cases {
		if got := matchGlob(tc.pattern, tc.path); got != tc.want {
			t.Errorf("matchGlob(%q, %q) = %v, want %v", tc.pattern, tc.path, got, tc.want)
		}
	}
}

func TestMatcherEmptyIncludesSelectsAll(t *testing.T) {
	m := NewMatcher(nil, []string{".git/**"})
	if !m.Match("anything/at/all.txt") {
		t.Error("empty includes should select everything not excluded")
	}
	if m.Match(".git/HEAD") {
		t.Error("exclude should still apply")
	}
}
