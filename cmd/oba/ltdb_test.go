package main

import (
	"bytes"
	"testing"

	"github.com/KilimcininKorOglu/oba/internal/ltdb"
)

func seedLtdbStore(t *testing.T, dir string) {
	t.Helper()
	db, err := ltdb.Open("tdb://"+dir, ltdb.OpenFlags{})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer db.Close()

	entry := ltdb.NewEntry("cn=alice,ou=people")
	entry.SetElement("cn", []byte("alice"))
	entry.SetElement("ou", []byte("people"))
	if err := db.Add(entry); err != nil {
		t.Fatalf("failed to seed entry: %v", err)
	}
}

func TestRun_LtdbBare(t *testing.T) {
	if code := run([]string{"oba", "ltdb"}); code != 0 {
		t.Errorf("expected exit code 0 for bare ltdb, got %d", code)
	}
}

func TestRun_LtdbHelp(t *testing.T) {
	for _, flag := range []string{"help", "-h", "--help"} {
		if code := run([]string{"oba", "ltdb", flag}); code != 0 {
			t.Errorf("expected exit code 0 for ltdb %s, got %d", flag, code)
		}
	}
}

func TestRun_LtdbUnknownSubcommand(t *testing.T) {
	if code := run([]string{"oba", "ltdb", "bogus"}); code != 1 {
		t.Errorf("expected exit code 1 for unknown ltdb subcommand, got %d", code)
	}
}

func TestRun_LtdbDumpNoPath(t *testing.T) {
	if code := run([]string{"oba", "ltdb", "dump"}); code != 1 {
		t.Errorf("expected exit code 1 for dump without a path, got %d", code)
	}
}

func TestRun_LtdbDump(t *testing.T) {
	dir := t.TempDir()
	seedLtdbStore(t, dir)

	if code := run([]string{"oba", "ltdb", "dump", dir}); code != 0 {
		t.Errorf("expected exit code 0 for dump, got %d", code)
	}
}

func TestRun_LtdbSeqnum(t *testing.T) {
	dir := t.TempDir()
	seedLtdbStore(t, dir)

	if code := run([]string{"oba", "ltdb", "seqnum", dir}); code != 0 {
		t.Errorf("expected exit code 0 for seqnum, got %d", code)
	}
}

func TestRun_LtdbSeqnumNoPath(t *testing.T) {
	if code := run([]string{"oba", "ltdb", "seqnum"}); code != 1 {
		t.Errorf("expected exit code 1 for seqnum without a path, got %d", code)
	}
}

func TestPrintLtdbUsage(t *testing.T) {
	var buf bytes.Buffer
	printLtdbUsage(&buf)
	output := buf.String()

	for _, expected := range []string{"oba ltdb", "dump", "seqnum"} {
		if !bytes.Contains([]byte(output), []byte(expected)) {
			t.Errorf("expected output to contain %q, got: %s", expected, output)
		}
	}
}
