// Package seed implements §4.H (static-seed dependency sorter) and §4.I
// (phased seed generator). Ordering never fails (§7): every input, however
// cyclic, produces an ordered table list plus diagnostics.
package seed

import (
	"sort"
	"strings"

	"github.com/danielbdyer/ddlexporter/internal/config"
	"github.com/danielbdyer/ddlexporter/internal/model"
)

// node is one seed table in the dependency graph, keyed by its effective
// (schema, physical name).
type node struct {
	table model.StaticEntitySeedTableDefinition
	key   string
}

func nodeKey(schema, effectiveName string) string {
	return strings.ToUpper(schema) + "\x00" + strings.ToUpper(effectiveName)
}

// edge is referenced -> owning (the parent must be emitted before the
// child), annotated with the owning FK column so phase detection can find a
// nullable deferred column.
type edge struct {
	from       int // referenced (parent) node index
	to         int // owning (child) node index
	viaColumn  string
	isNullable bool
	selfLoop   bool
}

// Outcome is §4.H's result: the ordered table list plus the diagnostic
// counters named in the spec.
type Outcome struct {
	Ordered                     []model.StaticEntitySeedTableDefinition
	TopologicalOrderingApplied  bool
	CycleDetected               bool
	AlphabeticalFallbackApplied bool
	NodeCount                   int
	EdgeCount                   int
	MissingEdgeCount            int

	// Phasing carries, per table key, the deferred column chosen for a
	// phasable cycle (empty when the table is not part of one).
	Phasing map[string]PhasePlan
}

// PhasePlan names the one deferred nullable FK column chosen for a
// phasable-cycle participant, and the cycle's other members for the
// PhaseOneSource join (§4.I).
type PhasePlan struct {
	DeferredColumn     string
	TargetSchema       string
	TargetTable        string
	TargetColumn       string
	CycleMembers       []string // node keys, for diagnostics only
	RequiresPhasing    bool
	AlphabeticalOnly   bool
}

// RelationshipEdge is the minimal shape order.go needs from the model's
// relationships: enough to find the owning/referenced seed nodes and the
// nullability of the owning column (resolved by the caller against the
// model's attributes, since seed.go's column shape doesn't carry
// nullability for non-seed attributes).
type RelationshipEdge struct {
	OwningSchema     string
	OwningTable      string // effective name, matching the node keys Sort builds from tables
	OwningColumn     string
	ReferencedSchema string
	ReferencedTable  string // effective name, matching the node keys Sort builds from tables
	ColumnIsNullable bool
}

// Sort computes §4.H's dependency order over tables, given relationship
// edges already rewritten to effective names by the caller (engine.Compile),
// so edges key against the same node identity as tables here.
func Sort(tables []model.StaticEntitySeedTableDefinition, edges []RelationshipEdge, overrides config.SeedingOptions) Outcome {
	out := Outcome{Phasing: make(map[string]PhasePlan)}

	nodes := make([]node, len(tables))
	index := make(map[string]int, len(tables))
	for i, t := range tables {
		n := node{table: t, key: nodeKey(t.Schema, effectiveOrDeclared(t))}
		nodes[i] = n
		index[n.key] = i
	}
	out.NodeCount = len(nodes)

	adj := make([][]edge, len(nodes))
	for _, re := range edges {
		parentKey := nodeKey(re.ReferencedSchema, re.ReferencedTable)
		childKey := nodeKey(re.OwningSchema, re.OwningTable)
		parentIdx, parentOK := index[parentKey]
		childIdx, childOK := index[childKey]
		if !parentOK || !childOK {
			out.MissingEdgeCount++
			continue
		}
		out.EdgeCount++
		adj[parentIdx] = append(adj[parentIdx], edge{
			from: parentIdx, to: childIdx,
			viaColumn: re.OwningColumn, isNullable: re.ColumnIsNullable,
			selfLoop: parentIdx == childIdx,
		})
	}

	// Tarjan completes a component reachable from an edge's target before
	// the component containing the edge's source; since our edges point
	// parent -> child, that natural order lists children before parents.
	// Reverse it so parents precede children, matching §4.H step 5.
	sccs := tarjanSCC(adj, len(nodes))
	for i, j := 0, len(sccs)-1; i < j; i, j = i+1, j-1 {
		sccs[i], sccs[j] = sccs[j], sccs[i]
	}

	manual := manualOrderIndex(overrides.CircularDependencyOverrides, nodes, index)

	var ordered []node
	for _, scc := range sccs {
		switch {
		case len(scc) == 1 && !hasSelfLoop(adj, scc[0]):
			ordered = append(ordered, nodes[scc[0]])

		case len(scc) == 1:
			// Self-loop: emit as-is, no phasing.
			ordered = append(ordered, nodes[scc[0]])

		default:
			out.CycleDetected = true
			resolved := resolveCycle(scc, nodes, adj, manual, &out)
			ordered = append(ordered, resolved...)
		}
	}

	out.TopologicalOrderingApplied = !out.CycleDetected
	out.Ordered = make([]model.StaticEntitySeedTableDefinition, len(ordered))
	for i, n := range ordered {
		out.Ordered[i] = n.table
	}
	return out
}

func effectiveOrDeclared(t model.StaticEntitySeedTableDefinition) string {
	if t.EffectiveName != "" {
		return t.EffectiveName
	}
	return t.PhysicalName
}

func hasSelfLoop(adj [][]edge, n int) bool {
	for _, e := range adj[n] {
		if e.selfLoop {
			return true
		}
	}
	return false
}

// manualOrderIndex maps a cycle signature (sorted node keys joined) to the
// configured node order, for §4.H step 4a.
func manualOrderIndex(overrides []config.CircularDependencyOverride, nodes []node, index map[string]int) map[string][]int {
	out := make(map[string][]int)
	for _, o := range overrides {
		var idxs []int
		var keys []string
		for _, name := range o.Cycle {
			// Cycle members are named by physical table name alone; match
			// against any schema (configuration-time convenience).
			for key, i := range index {
				if strings.HasSuffix(key, "\x00"+strings.ToUpper(name)) {
					idxs = append(idxs, i)
					keys = append(keys, key)
					break
				}
			}
		}
		if len(idxs) == 0 {
			continue
		}
		sortedKeys := append([]string(nil), keys...)
		sort.Strings(sortedKeys)
		out[strings.Join(sortedKeys, "|")] = idxs
	}
	return out
}

func resolveCycle(scc []int, nodes []node, adj [][]edge, manual map[string][]int, out *Outcome) []node {
	keys := make([]string, len(scc))
	for i, n := range scc {
		keys[i] = nodes[n].key
	}
	sortedKeys := append([]string(nil), keys...)
	sort.Strings(sortedKeys)
	signature := strings.Join(sortedKeys, "|")

	if order, ok := manual[signature]; ok && len(order) == len(scc) {
		result := make([]node, len(order))
		for i, idx := range order {
			result[i] = nodes[idx]
		}
		return result
	}

	deferred, ok := findNullableEdge(scc, adj)
	if ok {
		return phaseCycle(scc, nodes, adj, deferred, out)
	}

	out.AlphabeticalFallbackApplied = true
	result := make([]node, len(scc))
	copy(result, selectNodes(scc, nodes))
	sort.Slice(result, func(i, j int) bool { return result[i].key < result[j].key })
	for _, n := range result {
		out.Phasing[n.key] = PhasePlan{RequiresPhasing: true, AlphabeticalOnly: true, CycleMembers: keys}
	}
	return result
}

func selectNodes(scc []int, nodes []node) []node {
	out := make([]node, len(scc))
	for i, idx := range scc {
		out[i] = nodes[idx]
	}
	return out
}

// findNullableEdge picks one nullable in-cycle edge per participant node
// that has one, choosing the first such edge encountered for determinism.
func findNullableEdge(scc []int, adj [][]edge) (map[int]edge, bool) {
	inCycle := make(map[int]bool, len(scc))
	for _, n := range scc {
		inCycle[n] = true
	}

	chosen := make(map[int]edge)
	for _, n := range scc {
		for _, e := range adj[n] {
			if !inCycle[e.to] {
				continue
			}
			if e.isNullable {
				if _, already := chosen[e.to]; !already {
					chosen[e.to] = e
				}
			}
		}
	}
	return chosen, len(chosen) > 0
}

func phaseCycle(scc []int, nodes []node, adj [][]edge, deferred map[int]edge, out *Outcome) []node {
	keys := make([]string, len(scc))
	for i, n := range scc {
		keys[i] = nodes[n].key
	}

	// Order: nodes without a deferred edge come first; ties are broken by
	// node key (upper-cased schema and effective name).
	ordered := selectNodes(scc, nodes)
	sort.SliceStable(ordered, func(i, j int) bool {
		_, iHasDeferred := deferred[sccIndexOf(scc, nodes, ordered[i].key)]
		_, jHasDeferred := deferred[sccIndexOf(scc, nodes, ordered[j].key)]
		if iHasDeferred != jHasDeferred {
			return jHasDeferred // nodes without a deferred edge first
		}
		return ordered[i].key < ordered[j].key
	})

	for idx, e := range deferred {
		n := nodes[idx]
		parent := nodes[e.from]
		out.Phasing[n.key] = PhasePlan{
			DeferredColumn:  e.viaColumn,
			TargetSchema:    parent.table.Schema,
			TargetTable:     effectiveOrDeclared(parent.table),
			RequiresPhasing: true,
			CycleMembers:    keys,
		}
	}

	return ordered
}

func sccIndexOf(scc []int, nodes []node, key string) int {
	for _, idx := range scc {
		if nodes[idx].key == key {
			return idx
		}
	}
	return -1
}

// tarjanSCC computes strongly connected components via Tarjan's algorithm
// (§9: "cycle detection uses Tarjan's SCC algorithm... adjacency lists of
// small integer indices"). Components are returned in the algorithm's
// natural completion order — a component is finished, and appended, only
// after every component reachable from it has already been finished.
func tarjanSCC(adj [][]edge, n int) [][]int {
	index := make([]int, n)
	low := make([]int, n)
	onStack := make([]bool, n)
	for i := range index {
		index[i] = -1
	}
	var stack []int
	counter := 0
	var sccs [][]int

	var strongconnect func(v int)
	strongconnect = func(v int) {
		index[v] = counter
		low[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		for _, e := range adj[v] {
			w := e.to
			switch {
			case index[w] == -1:
				strongconnect(w)
				if low[w] < low[v] {
					low[v] = low[w]
				}
			case onStack[w]:
				if index[w] < low[v] {
					low[v] = index[w]
				}
			}
		}

		if low[v] == index[v] {
			var scc []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for v := 0; v < n; v++ {
		if index[v] == -1 {
			strongconnect(v)
		}
	}
	return sccs
}
