package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeDoc(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte("<ipxact:component/>"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestResolveLibrariesWithExplicitFiles(t *testing.T) {
	root := t.TempDir()
	core := filepath.Join(root, "ip", "core.xml")
	deep := filepath.Join(root, "ip", "sub", "deep.xml")
	old := filepath.Join(root, "ip", "old", "core_v0.xml")
	vendor := filepath.Join(root, "vendor", "pll.xml")
	notes := filepath.Join(root, "ip", "notes.txt")
	hidden := filepath.Join(root, "ip", ".git", "x.xml")
	for _, p := range []string{core, deep, old, vendor, notes, hidden} {
		writeDoc(t, p)
	}

	cfg := Config{
		Libraries: map[string]LibraryConfig{
			"ip": {Files: []string{"ip/**/*.xml", "ip/*.txt"}, Exclude: []string{"ip/old/*.xml"}},
		},
		Files: []FileEntry{
			{File: "vendor/pll.xml", Library: "vendor", IsThirdParty: true},
			{File: "vendor/missing.xml", Library: "vendor"},
		},
	}

	libs, err := cfg.ResolveLibraries(root)
	if err != nil {
		t.Fatalf("ResolveLibraries: %v", err)
	}
	if len(libs) != 2 || libs[0].Name != "ip" || libs[1].Name != "vendor" {
		t.Fatalf("expected libraries ip and vendor in order, got %+v", libs)
	}

	ipFiles := findLibFiles(t, libs, "ip")
	if !containsPath(ipFiles, core) || !containsPath(ipFiles, deep) {
		t.Fatalf("expected ip lib to include %s and %s, got %v", core, deep, ipFiles)
	}
	for _, unwanted := range []string{old, notes, hidden} {
		if containsPath(ipFiles, unwanted) {
			t.Fatalf("expected ip lib to skip %s, got %v", unwanted, ipFiles)
		}
	}

	vendorFiles := findLibFiles(t, libs, "vendor")
	if len(vendorFiles) != 1 || !containsPath(vendorFiles, vendor) {
		t.Fatalf("expected vendor lib to hold only %s, got %v", vendor, vendorFiles)
	}
	if !libs[1].IsThirdParty {
		t.Fatalf("expected vendor lib to be third party")
	}

	thirdParty, err := cfg.ThirdPartyFiles(root)
	if err != nil {
		t.Fatalf("ThirdPartyFiles: %v", err)
	}
	if !thirdParty[vendor] || thirdParty[core] {
		t.Fatalf("unexpected third party set %v", thirdParty)
	}
}

func TestGetAllFilesHonoursIgnorePatterns(t *testing.T) {
	root := t.TempDir()
	keep := filepath.Join(root, "a.xml")
	skip := filepath.Join(root, "sub", "a.generated.xml")
	writeDoc(t, keep)
	writeDoc(t, skip)

	cfg := DefaultConfig()
	cfg.Lint.IgnorePatterns = []string{"*.generated.xml"}

	files, err := cfg.GetAllFiles(root)
	if err != nil {
		t.Fatalf("GetAllFiles: %v", err)
	}
	if len(files) != 1 || files[0] != keep {
		t.Fatalf("expected only %s, got %v", keep, files)
	}
}

func TestResolveLibrariesFromFileRoot(t *testing.T) {
	root := t.TempDir()
	doc := filepath.Join(root, "top.xml")
	writeDoc(t, doc)

	files, err := DefaultConfig().GetAllFiles(doc)
	if err != nil {
		t.Fatalf("GetAllFiles: %v", err)
	}
	if !containsPath(files, doc) {
		t.Fatalf("expected directory of file root to be scanned, got %v", files)
	}
}

func TestIncludesAgreesWithResolveLibraries(t *testing.T) {
	root := t.TempDir()
	core := filepath.Join(root, "ip", "core.xml")
	deep := filepath.Join(root, "ip", "sub", "deep.xml")
	old := filepath.Join(root, "ip", "old", "core_v0.xml")
	generated := filepath.Join(root, "ip", "regs.generated.xml")
	hidden := filepath.Join(root, "ip", ".git", "x.xml")
	vendor := filepath.Join(root, "vendor", "pll.xml")
	stray := filepath.Join(root, "vendor", "spi.xml")
	for _, p := range []string{core, deep, old, generated, hidden, vendor, stray} {
		writeDoc(t, p)
	}

	cfg := Config{
		Libraries: map[string]LibraryConfig{
			"ip": {Files: []string{"ip/**/*.xml"}, Exclude: []string{"ip/old/*.xml"}},
		},
		Files: []FileEntry{{File: "vendor/pll.xml", Library: "vendor"}},
		Lint:  LintConfig{IgnorePatterns: []string{"*.generated.xml"}},
	}

	files, err := cfg.GetAllFiles(root)
	if err != nil {
		t.Fatalf("GetAllFiles: %v", err)
	}
	for _, p := range []string{core, deep, old, generated, hidden, vendor, stray} {
		if got, want := cfg.Includes(root, p), containsPath(files, p); got != want {
			t.Errorf("Includes(%s) = %v, resolved libraries say %v", p, got, want)
		}
	}

	// Files created later are judged by the same patterns.
	if !cfg.Includes(root, filepath.Join(root, "ip", "new", "later.xml")) {
		t.Errorf("expected a new file under ip/ to be included")
	}
	if cfg.Includes(root, filepath.Join(root, "vendor", "later.xml")) {
		t.Errorf("expected a new file under vendor/ to be left out")
	}
}

func TestMatchSuffix(t *testing.T) {
	tests := []struct {
		path    string
		pattern string
		want    bool
	}{
		{"a.xml", "*.xml", true},
		{filepath.Join("x", "y", "a.xml"), "*.xml", true},
		{filepath.Join("x", "y", "a.xml"), filepath.Join("y", "*.xml"), true},
		{filepath.Join("x", "z", "a.xml"), filepath.Join("y", "*.xml"), false},
		{"a.vhd", "*.xml", false},
	}
	for _, tt := range tests {
		t.Run(tt.path+"~"+tt.pattern, func(t *testing.T) {
			if got := matchSuffix(tt.path, tt.pattern); got != tt.want {
				t.Errorf("matchSuffix(%q, %q) = %v, want %v", tt.path, tt.pattern, got, tt.want)
			}
		})
	}
}

func findLibFiles(t *testing.T, libs []ResolvedLibrary, name string) []string {
	t.Helper()
	for _, lib := range libs {
		if lib.Name == name {
			return lib.Files
		}
	}
	t.Fatalf("library %s not found", name)
	return nil
}

func containsPath(files []string, target string) bool {
	for _, f := range files {
		if filepath.Clean(f) == filepath.Clean(target) {
			return true
		}
	}
	return false
}
