package httpx

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"orderflow/internal/sagalog"
	"orderflow/internal/workflow"
)

// Runner starts order workflows and keeps a registry of their instances so
// progress queries can reach them at any point in their lifetime. Completed
// instances stay queryable until the process exits; the durable saga log
// covers everything after that.
type Runner struct {
	host   workflow.Host
	log    sagalog.Repository
	cfg    workflow.Config
	tracer trace.Tracer

	mu        sync.RWMutex
	instances map[string]*Instance
}

// NewRunner constructs a Runner. repo may be nil, in which case transitions
// are not persisted to the saga log.
func NewRunner(h workflow.Host, repo sagalog.Repository, cfg workflow.Config) *Runner {
	return &Runner{
		host:      h,
		log:       repo,
		cfg:       cfg,
		tracer:    otel.Tracer("orderflow/httpx"),
		instances: make(map[string]*Instance),
	}
}

// Instance is one running or finished workflow plus its terminal result.
type Instance struct {
	wf   *workflow.OrderWorkflow
	done chan struct{}

	mu     sync.Mutex
	result string
	err    error
}

// Progress returns the snapshot of the instance's progress state.
func (i *Instance) Progress() workflow.ProgressState {
	return i.wf.Status()
}

// Signal forwards an informational payload to the workflow.
func (i *Instance) Signal(payload []byte) {
	i.wf.Signal(payload)
}

// Done is closed once the saga has reached a terminal result.
func (i *Instance) Done() <-chan struct{} {
	return i.done
}

// Result returns the terminal message and error. Only meaningful after Done
// is closed.
func (i *Instance) Result() (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.result, i.err
}

func (i *Instance) finish(result string, err error) {
	i.mu.Lock()
	i.result = result
	i.err = err
	i.mu.Unlock()
	close(i.done)
}

// Start spawns a saga for the item and returns its workflow ID immediately.
// The saga runs detached from the caller's context so it is not cancelled
// when the HTTP response is sent, while still propagating tracing metadata.
func (r *Runner) Start(ctx context.Context, item string) (string, *Instance) {
	id := "order-" + uuid.NewString()

	wf := workflow.New(id, r.host, r.log, r.cfg)
	inst := &Instance{wf: wf, done: make(chan struct{})}

	r.mu.Lock()
	r.instances[id] = inst
	r.mu.Unlock()

	runCtx := context.WithoutCancel(ctx)
	go func() {
		runCtx, span := r.tracer.Start(runCtx, "OrderWorkflow")
		defer span.End()

		result, err := wf.Run(runCtx, item)
		if err != nil {
			slog.ErrorContext(runCtx, "saga finished with error", "saga_id", id, "error", err)
		} else {
			slog.InfoContext(runCtx, "saga finished", "saga_id", id, "state", wf.Status().State)
		}
		inst.finish(result, err)
	}()

	return id, inst
}

// Get looks up a workflow instance by its ID.
func (r *Runner) Get(id string) (*Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.instances[id]
	return inst, ok
}
