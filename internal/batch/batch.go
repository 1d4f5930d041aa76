// Package batch loads and runs several independently-assembled
// bytecode programs. Loading N programs concurrently is bounded by
// golang.org/x/sync/semaphore — the ecosystem equivalent of the
// teacher's hand-rolled worker-pool/semaphore code in
// internal/concurrency, for the same "bounded fan-out over
// independent units of work" shape. Once loaded, every Program
// executes sequentially on its own: spec.md §5 requires a single
// *vm.Program never be touched by two goroutines, so only the load
// step below is concurrent.
package batch

import (
	"context"
	"io"
	"sync"

	"golang.org/x/sync/semaphore"

	"bcvm/internal/asm"
	"bcvm/internal/vm"
)

// Job is one program to assemble: Name identifies it in results,
// Source is internal/asm instruction text.
type Job struct {
	Name   string
	Source string
}

// Result is one job's outcome: either a ready-to-run Program, or an
// assembly error.
type Result struct {
	Name string
	Prog *vm.Program
	Err  error
}

// Load compiles each job into its own *vm.Program, running up to
// maxConcurrency assemblies at once, and returns one Result per job
// in input order.
func Load(ctx context.Context, jobs []Job, maxConcurrency int64) []Result {
	sem := semaphore.NewWeighted(maxConcurrency)
	results := make([]Result, len(jobs))
	var wg sync.WaitGroup

	for i := range jobs {
		i := i
		job := jobs[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				results[i] = Result{Name: job.Name, Err: err}
				return
			}
			defer sem.Release(1)

			prog := vm.NewProgram()
			a := asm.New(prog)
			a.Func("main", 0, nil)
			if err := a.Assemble(job.Source); err != nil {
				results[i] = Result{Name: job.Name, Err: err}
				return
			}
			results[i] = Result{Name: job.Name, Prog: prog}
		}()
	}

	wg.Wait()
	return results
}

// Run executes each successfully-loaded program to completion, in
// order, writing its output to out. It returns one error per job
// (nil on success); a program whose own Load failed carries its
// load error through unchanged.
func Run(results []Result, out io.Writer) []error {
	errs := make([]error, len(results))
	for i, r := range results {
		if r.Err != nil {
			errs[i] = r.Err
			continue
		}
		r.Prog.Out = out
		if execErr := r.Prog.Run(); execErr != nil && !vm.IsQuit(execErr) {
			errs[i] = execErr
		}
	}
	return errs
}
