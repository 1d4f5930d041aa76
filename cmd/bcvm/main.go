// cmd/bcvm/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"bcvm/internal/asm"
	"bcvm/internal/batch"
	"bcvm/internal/bytecode"
	"bcvm/internal/config"
	"bcvm/internal/diag"
	"bcvm/internal/history"
	"bcvm/internal/introspect"
	"bcvm/internal/repl"
	"bcvm/internal/vm"
)

const VERSION = config.Version

// Build variables - can be set during build with ldflags.
var (
	BuildDate = time.Now().Format("2006-01-02")
	GitCommit = "unknown"
)

// commandAliases mirrors the teacher's alias table shape: short
// letters resolve to the full subcommand name before dispatch.
var commandAliases = map[string]string{
	"r": "run",
	"i": "repl",
	"b": "batch",
	"x": "inspect",
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		showUsage()
		return
	}

	cmd := args[0]
	if alias, ok := commandAliases[cmd]; ok {
		cmd = alias
	}

	switch cmd {
	case "--help", "-h", "help":
		showUsage()
	case "--version", "-v", "version":
		showVersion()
	case "run":
		if err := runCommand(args[1:]); err != nil {
			log.Fatalf("Error: %v", err)
		}
	case "repl":
		repl.Start(os.Stdin, os.Stdout)
	case "batch":
		if err := batchCommand(args[1:]); err != nil {
			log.Fatalf("Error: %v", err)
		}
	case "inspect":
		if err := inspectCommand(args[1:]); err != nil {
			log.Fatalf("Error: %v", err)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		showUsage()
		os.Exit(1)
	}
}

// runCommand assembles and executes a single program file, optionally
// attaching a history store (--history=path.db) and/or reporting
// --stats at the end.
func runCommand(args []string) error {
	var path, historyPath string
	stats := false
	for _, a := range args {
		switch {
		case a == "--stats":
			stats = true
		case len(a) > len("--history=") && a[:len("--history=")] == "--history=":
			historyPath = a[len("--history="):]
		default:
			path = a
		}
	}
	if path == "" {
		return fmt.Errorf("usage: bcvm run [--stats] [--history=path.db] <file.bca>")
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	prog := vm.NewProgram()
	a := asm.New(prog)
	a.Func("main", 0, nil)
	if err := a.Assemble(string(src)); err != nil {
		return err
	}

	if historyPath != "" {
		store, err := history.Open(historyPath)
		if err != nil {
			return fmt.Errorf("opening history store: %w", err)
		}
		defer store.Close()
		prog.Hook = history.Hook{Store: store}
	}

	start := time.Now()
	var counter *countingHook
	if stats {
		counter = &countingHook{inner: prog.Hook}
		prog.Hook = counter
	}

	if execErr := prog.Run(); execErr != nil && !vm.IsQuit(execErr) {
		d := diag.FromExecError(execErr, prog)
		fmt.Fprint(os.Stderr, d.Error())
		os.Exit(1)
	}

	if stats {
		fmt.Fprintln(os.Stderr, diag.Stats(counter.count, time.Since(start)))
	}
	return nil
}

// countingHook wraps an optional inner hook and tallies opcode
// dispatches for --stats, without disturbing whatever hook (history,
// introspect) the caller already attached.
type countingHook struct {
	inner vm.DebugHook
	count uint64
}

func (h *countingHook) OnInstruction(p *vm.Program, frame vm.Frame, op bytecode.OpCode) {
	h.count++
	if h.inner != nil {
		h.inner.OnInstruction(p, frame, op)
	}
}

func (h *countingHook) OnCall(p *vm.Program, funcID int) {
	if h.inner != nil {
		h.inner.OnCall(p, funcID)
	}
}

func (h *countingHook) OnReturn(p *vm.Program, funcID int) {
	if h.inner != nil {
		h.inner.OnReturn(p, funcID)
	}
}

func (h *countingHook) OnError(p *vm.Program, err error) {
	if h.inner != nil {
		h.inner.OnError(p, err)
	}
}

func batchCommand(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: bcvm batch <file1.bca> [file2.bca ...]")
	}
	jobs := make([]batch.Job, 0, len(args))
	for _, path := range args {
		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		jobs = append(jobs, batch.Job{Name: path, Source: string(src)})
	}
	results := batch.Load(context.Background(), jobs, 4)
	errs := batch.Run(results, os.Stdout)
	failed := false
	for i, err := range errs {
		if err != nil {
			failed = true
			fmt.Fprintf(os.Stderr, "%s: %v\n", jobs[i].Name, err)
		}
	}
	if failed {
		os.Exit(1)
	}
	return nil
}

// inspectCommand runs one program with a live introspection
// WebSocket server attached, serving at the given address until the
// program finishes.
func inspectCommand(args []string) error {
	addr := ":8765"
	var path string
	for _, a := range args {
		if len(a) > len("--addr=") && a[:len("--addr=")] == "--addr=" {
			addr = a[len("--addr="):]
		} else {
			path = a
		}
	}
	if path == "" {
		return fmt.Errorf("usage: bcvm inspect [--addr=:8765] <file.bca>")
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	srv := introspect.NewServer()
	mux := http.NewServeMux()
	mux.Handle("/trace", srv.Handler())
	httpSrv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		log.Printf("bcvm inspect: serving ws://%s/trace", addr)
		_ = httpSrv.ListenAndServe()
	}()

	prog := vm.NewProgram()
	a := asm.New(prog)
	a.Func("main", 0, nil)
	if err := a.Assemble(string(src)); err != nil {
		return err
	}
	prog.Hook = introspect.Hook{Server: srv}

	if execErr := prog.Run(); execErr != nil && !vm.IsQuit(execErr) {
		d := diag.FromExecError(execErr, prog)
		fmt.Fprint(os.Stderr, d.Error())
		return nil
	}
	return nil
}

func showUsage() {
	fmt.Println("bcvm - an arbitrary-precision calculator virtual machine")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  bcvm run [--stats] [--history=path.db] <file.bca>   Run an assembled program (alias: r)")
	fmt.Println("  bcvm repl                                           Start interactive REPL     (alias: i)")
	fmt.Println("  bcvm batch <file.bca>...                            Run several programs        (alias: b)")
	fmt.Println("  bcvm inspect [--addr=:8765] <file.bca>              Run with a live trace server (alias: x)")
	fmt.Println()
	fmt.Println("  bcvm --version                                      Show version info")
	fmt.Println("  bcvm --help                                         Show this message")
}

func showVersion() {
	fmt.Printf("bcvm %s (build %s, commit %s)\n", VERSION, BuildDate, GitCommit)
}
