package build

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/abadi199/elm-make/internal/artifacts"
	"github.com/abadi199/elm-make/internal/project"
)

// runWorker consumes jobs until the channel closes. Workers never read
// scheduler state: everything a job needs travels in the job itself, and the
// single result travels back on the completion channel.
func runWorker(ctx context.Context, jobs <-chan job, completions chan<- completion, store *artifacts.Store, compile CompileFunc) {
	for j := range jobs {
		completions <- runJob(ctx, j, store, compile)
	}
}

func runJob(ctx context.Context, j job, store *artifacts.Store, compile CompileFunc) completion {
	// Native modules are pre-supplied JavaScript: they hold a place in the
	// dependency order but are never handed to the compiler and leave no
	// artifacts behind.
	if j.loc.IsNative {
		return completion{
			id: j.id,
			iface: project.Interface{
				Fingerprint: "native:" + j.id.String(),
				Native:      true,
			},
		}
	}

	source, err := os.ReadFile(j.loc.SourcePath)
	if err != nil {
		return completion{id: j.id, err: fmt.Errorf("read source %s: %w", j.loc.SourcePath, err)}
	}

	started := time.Now()
	iface, object, err := compile(ctx, j.id, source, j.ready)
	observeCompile(started)
	if err != nil {
		return completion{id: j.id, err: err}
	}

	if err := store.WriteInterface(j.id, iface); err != nil {
		return completion{id: j.id, err: fmt.Errorf("write interface for %s: %w", j.id, err)}
	}
	if err := store.WriteObject(j.id, object); err != nil {
		return completion{id: j.id, err: fmt.Errorf("write object for %s: %w", j.id, err)}
	}

	return completion{id: j.id, iface: iface}
}
