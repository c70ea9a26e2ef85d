package normalize

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/store"
)

func loaderStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return st
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestProcessDir(t *testing.T) {
	ctx := context.Background()
	st := loaderStore(t)
	dir := t.TempDir()

	writeFile(t, dir, "fns_debtors.csv",
		"ИНН,ФИО,Телефон,Дата рождения\n"+
			"1234567890,ИВАНОВ ИВАН ИВАНОВИЧ,89161234567,1980-05-15\n"+
			"0987654321,петров петр петрович,89167654321,1975-01-01\n")
	writeFile(t, dir, "bank_clients.csv",
		"ИНН,ФИО,Телефон\n"+
			"1111111111,Сидоров Сидор Сидорович,89160000001\n")
	writeFile(t, dir, "notes.txt", "not a csv")

	files, err := NewLoader(st, 100).ProcessDir(ctx, dir)
	if err != nil {
		t.Fatalf("process dir: %v", err)
	}
	if files != 2 {
		t.Errorf("expected 2 files processed, got %d", files)
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalLeads != 3 {
		t.Errorf("expected 3 leads, got %d", stats.TotalLeads)
	}
}

func TestProcessDir_DeduplicatesAcrossFiles(t *testing.T) {
	ctx := context.Background()
	st := loaderStore(t)
	dir := t.TempDir()

	// Same person in two files with different formatting.
	writeFile(t, dir, "fns_list.csv",
		"ИНН,ФИО,Телефон\n1234567890,ИВАНОВ ИВАН ИВАНОВИЧ,89161234567\n")
	writeFile(t, dir, "bank_list.csv",
		"ИНН,ФИО,Телефон\n1234567890,иванов иван иванович,+7 916 123-45-67\n")

	if _, err := NewLoader(st, 100).ProcessDir(ctx, dir); err != nil {
		t.Fatalf("process dir: %v", err)
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalLeads != 1 {
		t.Errorf("expected 1 deduplicated lead, got %d", stats.TotalLeads)
	}
}

func TestProcessFile_SkipsRowsWithoutName(t *testing.T) {
	ctx := context.Background()
	st := loaderStore(t)
	dir := t.TempDir()

	writeFile(t, dir, "leads.csv",
		"ФИО,Телефон\n"+
			"Иванов Иван,89161234567\n"+
			",89160000000\n"+
			"Петров Петр,89167654321\n")

	if err := NewLoader(st, 100).ProcessFile(ctx, filepath.Join(dir, "leads.csv")); err != nil {
		t.Fatalf("process file: %v", err)
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalLeads != 2 {
		t.Errorf("expected 2 leads, got %d", stats.TotalLeads)
	}
}

func TestProcessDir_MissingDir(t *testing.T) {
	st := loaderStore(t)
	if _, err := NewLoader(st, 100).ProcessDir(context.Background(), filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("expected error for missing directory")
	}
}
