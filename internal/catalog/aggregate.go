// SPDX-License-Identifier: MPL-2.0

package catalog

import (
	"fmt"

	"github.com/mkellerman/bmad-mcp-server-sub003/internal/inventory"
	"github.com/mkellerman/bmad-mcp-server-sub003/pkg/types"
)

type (
	// Pools holds every record of every origin, in origin order.
	Pools struct {
		Agents    []*types.Record
		Workflows []*types.Record
		Tasks     []*types.Record
		Modules   []types.ModuleInfo
		// Warnings are non-fatal inventory problems, prefixed with their origin.
		Warnings []string
		// Errors lists origins whose inventory could not be built. Those
		// origins contribute nothing to the pools.
		Errors []*OriginError
	}

	// OriginError reports an origin whose inventory failed to build.
	OriginError struct {
		Origin *types.Origin
		Err    error
	}
)

// Error implements the error interface.
func (e *OriginError) Error() string {
	return fmt.Sprintf("origin %s: %v", e.Origin, e.Err)
}

// Unwrap returns the underlying build error.
func (e *OriginError) Unwrap() error { return e.Err }

// Aggregate builds every origin with b and concatenates the results. A nil
// builder means inventory.Default. One origin failing never stops the others.
func Aggregate(origins []*types.Origin, b inventory.Builder) *Pools {
	if b == nil {
		b = inventory.Default
	}
	p := &Pools{}
	for _, o := range origins {
		inv, err := b.Build(o)
		if err != nil {
			p.Errors = append(p.Errors, &OriginError{Origin: o, Err: err})
			continue
		}
		p.Add(inv)
	}
	return p
}

// Add appends one inventory to the pools.
func (p *Pools) Add(inv *inventory.Inventory) {
	if inv == nil {
		return
	}
	p.Agents = append(p.Agents, inv.Agents...)
	p.Workflows = append(p.Workflows, inv.Workflows...)
	p.Tasks = append(p.Tasks, inv.Tasks...)
	p.Modules = append(p.Modules, inv.Modules...)
	for _, w := range inv.Warnings {
		p.Warnings = append(p.Warnings, fmt.Sprintf("%s: %s", inv.Origin, w))
	}
}

// Records returns the pool for kind. Unknown kinds yield nil.
func (p *Pools) Records(kind types.ResourceKind) []*types.Record {
	switch kind {
	case types.ResourceAgent:
		return p.Agents
	case types.ResourceWorkflow:
		return p.Workflows
	case types.ResourceTask:
		return p.Tasks
	default:
		return nil
	}
}

// Len returns the total number of records across all pools.
func (p *Pools) Len() int {
	return len(p.Agents) + len(p.Workflows) + len(p.Tasks)
}
