// Package dispatch implements the Call Dispatcher (spec.md §4.7): resolves
// a named endpoint, validates arguments, constructs the matching read-only
// or mutation context, and invokes the registered handler.
package dispatch

import (
	"time"

	"github.com/reactivedb/reactive/internal/engineerr"
	"github.com/reactivedb/reactive/internal/registry"
	"github.com/reactivedb/reactive/internal/relational"
	"github.com/reactivedb/reactive/internal/telemetry"
	"github.com/reactivedb/reactive/internal/values"
	"github.com/reactivedb/reactive/internal/vector"
)

// Dispatcher binds an Endpoint Registry to the engine handles its handlers
// run against.
type Dispatcher struct {
	Registry   *registry.Registry
	Relational *relational.Engine
	Vector     *vector.Engine
	Telemetry  *telemetry.Log
}

// New binds a Dispatcher. Telemetry may be nil, in which case operation
// events are simply not recorded.
func New(reg *registry.Registry, rel *relational.Engine, vec *vector.Engine, tel *telemetry.Log) *Dispatcher {
	return &Dispatcher{Registry: reg, Relational: rel, Vector: vec, Telemetry: tel}
}

// Call resolves endpoint, checks it matches kind, validates args against
// its declared argument shape, constructs the matching context, and
// invokes the handler. Telemetry is recorded out-of-band and never masks
// the call's own result (spec.md §4.8).
func (d *Dispatcher) Call(kind registry.Kind, endpoint string, args map[string]any) (any, error) {
	start := time.Now()
	result, err := d.call(kind, endpoint, args)
	d.recordTelemetry(endpoint, start, err)
	return result, err
}

func (d *Dispatcher) call(kind registry.Kind, endpoint string, args map[string]any) (any, error) {
	desc, err := d.Registry.Resolve(endpoint)
	if err != nil {
		return nil, err
	}
	if desc.Kind != kind {
		return nil, engineerr.FunctionResolution("endpoint %q is a %s endpoint, not %s", endpoint, desc.Kind, kind)
	}

	validated, err := validateArgs(endpoint, desc.Args, args)
	if err != nil {
		return nil, err
	}

	switch kind {
	case registry.KindRead:
		ctx := registry.ReadContext{Relational: d.Relational.Read(), Vector: d.Vector}
		return desc.ReadHandler(ctx, validated)
	case registry.KindWrite:
		ctx := registry.MutationContext{Relational: d.Relational.Write(), Vector: d.Vector}
		return desc.WriteHandler(ctx, validated)
	default:
		return nil, engineerr.Validation("unknown endpoint kind %q", kind)
	}
}

func validateArgs(endpoint string, shape *values.Def, args map[string]any) (map[string]any, error) {
	if shape == nil {
		return args, nil
	}
	if args == nil {
		args = map[string]any{}
	}
	validated, err := values.Validate(endpoint, shape, args, true)
	if err != nil {
		return nil, err
	}
	m, _ := validated.(map[string]any)
	return m, nil
}

func (d *Dispatcher) recordTelemetry(endpoint string, start time.Time, err error) {
	if d.Telemetry == nil {
		return
	}
	status := telemetry.StatusSuccess
	errMsg := ""
	if err != nil {
		status = telemetry.StatusError
		errMsg = err.Error()
	}
	d.Telemetry.Record(telemetry.Event{
		Operation:  endpoint,
		Status:     status,
		DurationMs: time.Since(start).Milliseconds(),
		Error:      errMsg,
	})
}
