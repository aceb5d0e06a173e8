package pipeline

const (
	// DefaultConcurrency is applied when a Pipeline declares no (or a
	// non-positive) concurrency value.
	DefaultConcurrency = 5
)

// Pipeline is the validated, immutable declaration of work. Tasks are
// stored in declaration order, which is NOT the execution order.
type Pipeline struct {
	Name        string
	Version     string
	Description string
	Tasks       []Task
	Triggers    []Trigger
	Concurrency int
	TimeoutMs   int64
	Env         map[string]string
}

// ApplyDefaults fills in zero-valued fields with their specified defaults.
// Concurrency defaults to DefaultConcurrency; Timeout has no default
// substitution — zero means unbounded per the spec.
func (p *Pipeline) ApplyDefaults() {
	if p.Concurrency <= 0 {
		p.Concurrency = DefaultConcurrency
	}
	if p.Env == nil {
		p.Env = map[string]string{}
	}
}

// GetTask returns the task with the given id, if present.
func (p *Pipeline) GetTask(id string) (Task, bool) {
	for _, t := range p.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// Validate checks every invariant named in the data model: non-empty
// name/version, per-task validity, unique ids, dependency resolution,
// acyclicity, and the single-root-task rule.
func (p *Pipeline) Validate() *DomainError {
	if p.Name == "" {
		return newMissingFieldError("name")
	}
	if p.Version == "" {
		return newMissingFieldError("version")
	}

	seen := make(map[string]bool, len(p.Tasks))
	for _, t := range p.Tasks {
		if err := t.Validate(); err != nil {
			return err
		}
		if seen[t.ID] {
			return newDuplicateError(t.ID)
		}
		seen[t.ID] = true
	}

	return p.ValidateDependencies()
}

// ValidateDependencies checks that every dependsOn id resolves within the
// Pipeline, that the dependency graph is acyclic, and that at most one
// root task (no dependencies and no dependents) exists.
func (p *Pipeline) ValidateDependencies() *DomainError {
	index := make(map[string]Task, len(p.Tasks))
	for _, t := range p.Tasks {
		index[t.ID] = t
	}

	for _, t := range p.Tasks {
		for _, dep := range t.DependsOn {
			if _, ok := index[dep]; !ok {
				return newDependencyError("task depends on unknown task", map[string]interface{}{
					"task": t.ID, "dependsOn": dep,
				})
			}
		}
	}

	if cycles := DetectCycles(p.Tasks); len(cycles) > 0 {
		return newCycleError(cycles)
	}

	if roots := FindRoots(p.Tasks); len(roots) > 1 {
		return newValidationError("pipeline has more than one root task", map[string]interface{}{"roots": roots})
	}
	return nil
}

// FindRoots returns the ids of every task with no dependencies and no
// dependents. A valid Pipeline has at most one; a task that has
// dependents is never counted, so a fully connected graph has none.
func FindRoots(tasks []Task) []string {
	hasDependent := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		for _, dep := range t.DependsOn {
			hasDependent[dep] = true
		}
	}

	roots := make([]string, 0, 1)
	for _, t := range tasks {
		if len(t.DependsOn) == 0 && !hasDependent[t.ID] {
			roots = append(roots, t.ID)
		}
	}
	return roots
}

// visitState tracks DFS coloring for cycle detection: white (unvisited),
// grey (on the current recursion stack), black (fully explored).
type visitState int

const (
	white visitState = iota
	grey
	black
)

// DetectCycles performs a depth-first search over the dependency graph,
// marking grey/black, and returns a human-readable path for every cycle
// encountered rather than stopping at the first.
func DetectCycles(tasks []Task) []string {
	state := make(map[string]visitState, len(tasks))
	index := make(map[string]Task, len(tasks))
	for _, t := range tasks {
		state[t.ID] = white
		index[t.ID] = t
	}

	var cycles [][]string
	var stack []string

	var visit func(id string)
	visit = func(id string) {
		state[id] = grey
		stack = append(stack, id)

		for _, dep := range index[id].DependsOn {
			switch state[dep] {
			case white:
				visit(dep)
			case grey:
				start := indexOf(stack, dep)
				if start >= 0 {
					cycle := append([]string(nil), stack[start:]...)
					cycle = append(cycle, dep)
					cycles = append(cycles, cycle)
				}
			case black:
				// fully explored, no cycle through this edge
			}
		}

		stack = stack[:len(stack)-1]
		state[id] = black
	}

	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	for _, id := range ids {
		if state[id] == white {
			visit(id)
		}
	}

	if len(cycles) == 0 {
		return nil
	}

	paths := make([]string, 0, len(cycles))
	for _, c := range cycles {
		paths = append(paths, joinPath(c))
	}
	return paths
}

func indexOf(stack []string, target string) int {
	for i, v := range stack {
		if v == target {
			return i
		}
	}
	return -1
}

func joinPath(path []string) string {
	out := ""
	for i, id := range path {
		if i > 0 {
			out += "->"
		}
		out += id
	}
	return out
}
