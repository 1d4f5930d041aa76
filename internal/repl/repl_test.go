package repl_test

import (
	"bytes"
	"os"
	"testing"

	"bcvm/internal/repl"
)

func TestStartExecutesLinesIncrementally(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	go func() {
		defer w.Close()
		w.WriteString("PUSH_NUM 1\n")
		w.WriteString("PUSH_NUM 2\n")
		w.WriteString("PLUS\n")
		w.WriteString("PRINT\n")
		w.WriteString("quit\n")
	}()

	var out bytes.Buffer
	repl.Start(r, &out)

	if got := out.String(); got != "3\n" {
		t.Errorf("repl output = %q, want %q", got, "3\n")
	}
}

func TestStartStopsOnHalt(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	go func() {
		defer w.Close()
		w.WriteString("PUSH_NUM 9\n")
		w.WriteString("PRINT\n")
		w.WriteString("HALT\n")
		w.WriteString("PUSH_NUM 1\n") // must not execute: HALT already quit
		w.WriteString("PRINT\n")
	}()

	var out bytes.Buffer
	repl.Start(r, &out)

	if got := out.String(); got != "9\n" {
		t.Errorf("repl output = %q, want %q (HALT should stop the session)", got, "9\n")
	}
}
