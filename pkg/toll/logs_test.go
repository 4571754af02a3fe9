package toll

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestTransactionLogHeaderWrittenOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transaction_log.csv")

	l, err := OpenTransactionLog(path)
	if err != nil {
		t.Fatal(err)
	}
	rec := TransactionRecord{
		Timestamp:    time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		VehicleKey:   "ABC123",
		Method:       "balance",
		AmountCents:  5000,
		BalanceCents: 10000,
	}
	if err := l.Append(rec); err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	// reopening an existing log must append, not rewrite the header
	l, err = OpenTransactionLog(path)
	if err != nil {
		t.Fatal(err)
	}
	rec.BalanceCents = 5000
	if err := l.Append(rec); err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if strings.Count(content, "timestamp,vehicle_id,") != 1 {
		t.Fatalf("header repeated:\n%s", content)
	}
	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header plus two records:\n%s", len(lines), content)
	}
	if lines[1] != "2026-03-14T09:30:00Z,ABC123,balance,50.00,100.00" {
		t.Fatalf("record line wrong: %q", lines[1])
	}
}

func TestErrorLogLineFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "error_log.txt")
	l, err := OpenErrorLog(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Appendf("no license plate detected in event %s", "abc"); err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	line := strings.TrimSpace(string(data))
	i := strings.Index(line, ": ")
	if i < 0 {
		t.Fatalf("no timestamp separator in %q", line)
	}
	if _, err := time.Parse(time.RFC3339, line[:i]); err != nil {
		t.Fatalf("bad timestamp prefix in %q: %v", line, err)
	}
	if line[i+2:] != "no license plate detected in event abc" {
		t.Fatalf("message wrong: %q", line)
	}
}

func TestFileManagerLayout(t *testing.T) {
	base := filepath.Join(t.TempDir(), "toll_system")
	fm, err := NewFileManager(base)
	if err != nil {
		t.Fatal(err)
	}
	for _, dir := range []string{
		"config",
		"data",
		"logs",
		"output/captured_plates",
		"output/processed_images",
		"output/daily_summaries",
	} {
		st, err := os.Stat(filepath.Join(base, dir))
		if err != nil || !st.IsDir() {
			t.Fatalf("missing directory %s: %v", dir, err)
		}
	}
	if got := fm.ConfigPath("config.txt"); got != filepath.Join(base, "config", "config.txt") {
		t.Fatalf("ConfigPath = %q", got)
	}
	if got := fm.LogPath("error_log.txt"); got != filepath.Join(base, "logs", "error_log.txt") {
		t.Fatalf("LogPath = %q", got)
	}
}
