package catio

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCatalog(t *testing.T, lines []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.txt")
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadTextCatalogParsesPositionsAndVelocities(t *testing.T) {
	path := writeCatalog(t, []string{
		"# header comment",
		"0.1 0.2 0.3 1.0 2.0 3.0",
		"0.4 0.5 0.6 4.0 5.0 6.0",
	})

	s, err := ReadTextCatalog(path, []int{0, 1, 2}, []int{3, 4, 5}, DefaultConfig)
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 2 {
		t.Fatalf("got %d particles, want 2", s.Len())
	}
	if s.Pos[0][0] != 0.1 || s.Pos[1][2] != 0.6 {
		t.Fatalf("unexpected positions: %v", s.Pos)
	}
	if s.Vel[0][1] != 2.0 || s.Vel[1][2] != 6.0 {
		t.Fatalf("unexpected velocities: %v", s.Vel)
	}
}

func TestReadTextCatalogSkipsBlankAndCommentedLines(t *testing.T) {
	path := writeCatalog(t, []string{
		"# comment",
		"",
		"0.1 0.2 0.3",
		"   ",
		"0.4 0.5 0.6 # trailing comment",
	})

	s, err := ReadTextCatalog(path, []int{0, 1, 2}, nil, DefaultConfig)
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 2 {
		t.Fatalf("got %d particles, want 2", s.Len())
	}
	for i := 0; i < s.Len(); i++ {
		if s.Vel[i][0] != 0 || s.Vel[i][1] != 0 || s.Vel[i][2] != 0 {
			t.Fatalf("particle %d: expected zero velocity when velCols is nil, got %v", i, s.Vel[i])
		}
	}
}

func TestReadTextCatalogHonorsSkipLines(t *testing.T) {
	path := writeCatalog(t, []string{
		"id x y z",
		"1 0.1 0.2 0.3",
		"2 0.4 0.5 0.6",
	})

	cfg := DefaultConfig
	cfg.SkipLines = 1
	s, err := ReadTextCatalog(path, []int{1, 2, 3}, nil, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 2 {
		t.Fatalf("got %d particles, want 2", s.Len())
	}
	if s.Pos[0][0] != 0.1 {
		t.Fatalf("skipped header row incorrectly: %v", s.Pos[0])
	}
}

func TestResolveColumnsUsesColumnNames(t *testing.T) {
	cfg := TextConfig{ColumnNames: map[string]int{"x": 1, "y": 2, "z": 3}}
	cols, err := ResolveColumns(cfg, []string{"x", "y", "z"})
	if err != nil {
		t.Fatal(err)
	}
	want := []int{1, 2, 3}
	for i := range want {
		if cols[i] != want[i] {
			t.Fatalf("cols=%v, want %v", cols, want)
		}
	}
}

func TestResolveColumnsRejectsUnknownName(t *testing.T) {
	cfg := TextConfig{ColumnNames: map[string]int{"x": 1}}
	if _, err := ResolveColumns(cfg, []string{"bogus"}); err == nil {
		t.Fatal("want error for unknown column name")
	}
}

func TestReadTextCatalogRejectsMismatchedVelCols(t *testing.T) {
	path := writeCatalog(t, []string{"0.1 0.2 0.3"})
	if _, err := ReadTextCatalog(path, []int{0, 1, 2}, []int{0, 1}, DefaultConfig); err == nil {
		t.Fatal("want error for len(velCols) != len(posCols)")
	}
}
