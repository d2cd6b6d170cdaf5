package ignore

import "testing"

func TestAnchorRewrite(t *testing.T) {
	f, err := New([]string{`^foo$`})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cases := []struct {
		path string
		want bool
	}{
		{"foo", true},
		{"a/foo", true},
		{"a/b/foo", true},
		{"barfoo", false},
		{"a/barfoo", false},
		{"foo/bar", false},
	}
	for _, tc := range cases {
		if got := f.Match(tc.path); got != tc.want {
			t.Errorf("Match(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestUserPatterns(t *testing.T) {
	f, err := New([]string{`\.o$`, `^build/`})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cases := []struct {
		path string
		want bool
	}{
		{"main.o", true},
		{"src/util.o", true},
		{"main.c", false},
		{"build/out", true},
		{"src/build/out", true},
		{"builds/out", false},
	}
	for _, tc := range cases {
		if got := f.Match(tc.path); got != tc.want {
			t.Errorf("Match(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestBadPattern(t *testing.T) {
	if _, err := New([]string{`(`}); err == nil {
		t.Fatal("expected error for unbalanced pattern")
	}
}

func TestTempPreset(t *testing.T) {
	f, err := New(Temp)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cases := []struct {
		path string
		want bool
	}{
		{"foo.tmp", true},
		{"foo.temp", true},
		{"a/b/foo.tmp", true},
		{".cache-tmp-x", true},
		{".temp.data", true},
		{".main.go.swp", true},
		{"_main.go.swp", true},
		{"src/.main.go.swp", true},
		{"#document.txt#", true},
		{"notes/#draft#", true},
		{"template.go", false},
		{"attempt.txt", false},
		{"swap.swp", false},
		{"#incomplete", false},
	}
	for _, tc := range cases {
		if got := f.Match(tc.path); got != tc.want {
			t.Errorf("Match(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestDotfilesPreset(t *testing.T) {
	f, err := New(Dotfiles)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cases := []struct {
		path string
		want bool
	}{
		{".git", true},
		{".git/config", true},
		{"src/.hidden", true},
		{"src/.hidden/deep", true},
		{"visible", false},
		{"src/file.txt", false},
	}
	for _, tc := range cases {
		if got := f.Match(tc.path); got != tc.want {
			t.Errorf("Match(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestBackupsPreset(t *testing.T) {
	f, err := New(Backups)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cases := []struct {
		path string
		want bool
	}{
		{"config.bak", true},
		{"config.backup", true},
		{"config.old", true},
		{"config.orig", true},
		{"notes~", true},
		{"a/b/notes~", true},
		{"bakery/file", false},
		{"golden.txt", false},
	}
	for _, tc := range cases {
		if got := f.Match(tc.path); got != tc.want {
			t.Errorf("Match(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestLogsPreset(t *testing.T) {
	f, err := New(Logs)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cases := []struct {
		path string
		want bool
	}{
		{"app.log", true},
		{"app_log", true},
		{"app-log", true},
		{"log/app", true},
		{"logs/app", true},
		{"var/log/app", true},
		{"var/logs/app", true},
		{"src/logs", true},
		{"catalog.txt", false},
		{"logger.go", false},
		{"dialog", false},
	}
	for _, tc := range cases {
		if got := f.Match(tc.path); got != tc.want {
			t.Errorf("Match(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestOrderedSources(t *testing.T) {
	// User patterns and presets combine; any match ignores.
	f, err := New([]string{`^vendor$`}, Dotfiles)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if f.Len() != 2 {
		t.Fatalf("Len = %d, want 2", f.Len())
	}
	if !f.Match("vendor") {
		t.Error("expected vendor to match user pattern")
	}
	if !f.Match(".git") {
		t.Error("expected .git to match preset")
	}
	if f.Match("src/main.go") {
		t.Error("src/main.go should not match")
	}
}
