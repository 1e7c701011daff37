// SPDX-License-Identifier: MPL-2.0

package catalog

import (
	"cmp"
	"slices"

	"github.com/mkellerman/bmad-mcp-server-sub003/pkg/types"
)

type (
	// ScopeFunc reports whether an origin takes part in resolution.
	ScopeFunc func(*types.Origin) bool

	// Policy controls how competing records are ordered.
	Policy struct {
		// Precedence orders origin kinds, most preferred first. Kinds not
		// listed sort after every listed kind.
		Precedence []types.OriginKind
		// SourcePreference breaks ties between records of equally ranked
		// origins, most preferred first.
		SourcePreference []types.RecordSource
		// Scope, when set, drops records of origins it rejects before grouping.
		Scope ScopeFunc
		// ModuleQualified groups by (kind, module, name) instead of (kind, name).
		ModuleQualified bool
	}

	// GroupKey identifies one logical resource. Module is empty unless the
	// policy is module-qualified.
	GroupKey struct {
		Kind   types.ResourceKind
		Module string
		Name   string
	}

	// Conflict is one group of competing records, sorted best first.
	// Single-candidate groups are conflicts too.
	Conflict struct {
		Key        GroupKey
		Candidates []*types.Record
		Winner     *types.Record
	}

	// Resolution is the outcome of Resolve: one winner per group, per kind,
	// sorted by module and name, plus every group.
	Resolution struct {
		Agents    []*types.Record
		Workflows []*types.Record
		Tasks     []*types.Record
		Conflicts []Conflict
	}
)

// DefaultPolicy returns the default precedence and source preference.
func DefaultPolicy() Policy {
	return Policy{
		Precedence:       types.DefaultPrecedence(),
		SourcePreference: []types.RecordSource{types.SourceManifest, types.SourceFilesystem},
	}
}

// String renders the key as "kind:name" or "kind:module/name".
func (k GroupKey) String() string {
	if k.Module == "" {
		return string(k.Kind) + ":" + k.Name
	}
	return string(k.Kind) + ":" + k.Module + "/" + k.Name
}

// Contested reports whether more than one record competed.
func (c Conflict) Contested() bool { return len(c.Candidates) > 1 }

// Records returns the winners for kind.
func (r *Resolution) Records(kind types.ResourceKind) []*types.Record {
	switch kind {
	case types.ResourceAgent:
		return r.Agents
	case types.ResourceWorkflow:
		return r.Workflows
	case types.ResourceTask:
		return r.Tasks
	default:
		return nil
	}
}

// Resolve groups every pool and picks a winner per group.
func Resolve(pools *Pools, p Policy) *Resolution {
	res := &Resolution{}
	for _, kind := range types.AllResourceKinds() {
		conflicts := p.group(pools.Records(kind))
		winners := make([]*types.Record, 0, len(conflicts))
		for _, c := range conflicts {
			winners = append(winners, c.Winner)
		}
		slices.SortFunc(winners, func(a, b *types.Record) int {
			return cmp.Or(cmp.Compare(a.Module, b.Module), cmp.Compare(a.Name, b.Name), p.Compare(a, b))
		})
		switch kind {
		case types.ResourceAgent:
			res.Agents = winners
		case types.ResourceWorkflow:
			res.Workflows = winners
		case types.ResourceTask:
			res.Tasks = winners
		}
		res.Conflicts = append(res.Conflicts, conflicts...)
	}
	return res
}

// Compare orders two records: origin kind precedence, then origin priority,
// then source preference, then origin root, module path and absolute path.
// The last three make the order total.
func (p Policy) Compare(a, b *types.Record) int {
	return cmp.Or(
		cmp.Compare(rank(p.precedence(), a.Origin.Kind), rank(p.precedence(), b.Origin.Kind)),
		cmp.Compare(a.Origin.Priority, b.Origin.Priority),
		cmp.Compare(rank(p.sources(), a.Source), rank(p.sources(), b.Source)),
		cmp.Compare(a.Origin.Root, b.Origin.Root),
		cmp.Compare(a.ModulePath, b.ModulePath),
		cmp.Compare(a.AbsPath, b.AbsPath),
	)
}

// Key returns the group key of r under the policy.
func (p Policy) Key(r *types.Record) GroupKey {
	k := GroupKey{Kind: r.Kind, Name: r.Name}
	if p.ModuleQualified {
		k.Module = r.Module
	}
	return k
}

func (p Policy) inScope(r *types.Record) bool {
	return r.Origin != nil && (p.Scope == nil || p.Scope(r.Origin))
}

// group buckets records by key and sorts each bucket. Groups come back in
// key order.
func (p Policy) group(records []*types.Record) []Conflict {
	buckets := make(map[GroupKey][]*types.Record)
	for _, r := range records {
		if !p.inScope(r) {
			continue
		}
		k := p.Key(r)
		buckets[k] = append(buckets[k], r)
	}

	out := make([]Conflict, 0, len(buckets))
	for k, cands := range buckets {
		out = append(out, p.conflict(k, cands))
	}
	slices.SortFunc(out, func(a, b Conflict) int {
		return cmp.Or(cmp.Compare(a.Key.Module, b.Key.Module), cmp.Compare(a.Key.Name, b.Key.Name))
	})
	return out
}

// conflict sorts candidates and picks the winner: the best candidate present
// on disk, or the best candidate outright when none is.
func (p Policy) conflict(k GroupKey, cands []*types.Record) Conflict {
	sorted := slices.Clone(cands)
	slices.SortFunc(sorted, p.Compare)
	c := Conflict{Key: k, Candidates: sorted}
	if len(sorted) == 0 {
		return c
	}
	c.Winner = sorted[0]
	for _, r := range sorted {
		if r.Exists {
			c.Winner = r
			break
		}
	}
	return c
}

func (p Policy) precedence() []types.OriginKind {
	if len(p.Precedence) == 0 {
		return types.DefaultPrecedence()
	}
	return p.Precedence
}

func (p Policy) sources() []types.RecordSource {
	if len(p.SourcePreference) == 0 {
		return []types.RecordSource{types.SourceManifest, types.SourceFilesystem}
	}
	return p.SourcePreference
}

// rank is the index of v in order, or len(order) when absent.
func rank[T comparable](order []T, v T) int {
	if i := slices.Index(order, v); i >= 0 {
		return i
	}
	return len(order)
}
