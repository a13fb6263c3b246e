package registry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fathomlabs/fathom/internal/fathomerr"
	"github.com/fathomlabs/fathom/internal/region"
	"github.com/fathomlabs/fathom/internal/shield"
)

// AuditFunc records one dispatch outcome. Dispatch calls it exactly once
// per invocation, win or lose.
type AuditFunc func(ctx context.Context, tool, args, status string)

// Dispatcher resolves a tool by name and invokes it, defensively
// re-validating the name against the command grammar even though the
// Agent Loop has already done so once.
type Dispatcher struct {
	Registry *Registry
	Log      *slog.Logger
	Audit    AuditFunc
}

// NewDispatcher builds a Dispatcher over reg. log and audit may be nil.
func NewDispatcher(reg *Registry, log *slog.Logger, audit AuditFunc) *Dispatcher {
	return &Dispatcher{Registry: reg, Log: log, Audit: audit}
}

// Dispatch resolves name, validates it against the command grammar,
// invokes the tool function with args and r, and emits one audit event
// describing the outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args []byte, r *region.Region) ([]byte, error) {
	const op = "registry.Dispatch"
	start := time.Now()

	if res := shield.Validate([]byte(name), shield.Command); !res.Valid {
		d.audit(ctx, name, string(args), "denied")
		return nil, fathomerr.New(op, fathomerr.KindInvalidInput,
			fmt.Errorf("tool name %q failed command grammar: %s", name, res.Reason))
	}

	desc, ok := d.Registry.Get(name)
	if !ok {
		d.audit(ctx, name, string(args), "not_found")
		return nil, fathomerr.New(op, fathomerr.KindNotFound, fmt.Errorf("no such tool: %q", name))
	}

	out, err := desc.Fn(args, r)
	elapsed := time.Since(start)
	if err != nil {
		d.audit(ctx, name, string(args), "failure")
		if d.Log != nil {
			d.Log.Warn("tool dispatch failed", "tool", name, "elapsed", elapsed, "error", err)
		}
		return nil, fathomerr.New(op, fathomerr.KindToolFailure, err)
	}

	d.audit(ctx, name, string(args), "success")
	if d.Log != nil {
		d.Log.Info("tool dispatch succeeded", "tool", name, "elapsed", elapsed, "output_bytes", len(out))
	}
	return out, nil
}

func (d *Dispatcher) audit(ctx context.Context, tool, args, status string) {
	if d.Audit != nil {
		d.Audit(ctx, tool, args, status)
	}
}
