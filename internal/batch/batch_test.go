package batch_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"bcvm/internal/batch"
)

func TestLoadAndRunMultipleJobs(t *testing.T) {
	jobs := []batch.Job{
		{Name: "one", Source: "PUSH_NUM 1\nPRINT\nHALT\n"},
		{Name: "two", Source: "PUSH_NUM 2\nPRINT\nHALT\n"},
		{Name: "three", Source: "PUSH_NUM 3\nPRINT\nHALT\n"},
	}

	results := batch.Load(context.Background(), jobs, 2)
	if len(results) != len(jobs) {
		t.Fatalf("got %d results, want %d", len(results), len(jobs))
	}
	for i, r := range results {
		if r.Err != nil {
			t.Fatalf("job %q failed to load: %v", jobs[i].Name, r.Err)
		}
		if r.Name != jobs[i].Name {
			t.Errorf("result %d name = %q, want %q (results must preserve input order)", i, r.Name, jobs[i].Name)
		}
	}

	var out bytes.Buffer
	errs := batch.Run(results, &out)
	for i, err := range errs {
		if err != nil {
			t.Errorf("job %q failed to run: %v", jobs[i].Name, err)
		}
	}
	if got := out.String(); got != "1\n2\n3\n" {
		t.Errorf("combined output = %q, want %q", got, "1\n2\n3\n")
	}
}

func TestLoadSurfacesAssemblyErrorsPerJob(t *testing.T) {
	jobs := []batch.Job{
		{Name: "good", Source: "PUSH_NUM 1\nPOP\nHALT\n"},
		{Name: "bad", Source: "NOT_AN_OPCODE\n"},
	}
	results := batch.Load(context.Background(), jobs, 4)
	if results[0].Err != nil {
		t.Errorf("job %q: unexpected error %v", jobs[0].Name, results[0].Err)
	}
	if results[1].Err == nil || !strings.Contains(results[1].Err.Error(), "unknown mnemonic") {
		t.Errorf("job %q: got %v, want an unknown-mnemonic assembly error", jobs[1].Name, results[1].Err)
	}
}
