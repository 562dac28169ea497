package pipeline

import "fmt"

// TopoSort orders the given stage set by Kahn's algorithm over their
// declared dependencies, breaking ties by CanonicalOrder (§4.2). Stages
// configured with ModeSkip are excluded from the returned order but still
// participate in cycle detection, since a dependent stage may declare a
// dependency on a skipped one.
func TopoSort(stages map[Stage]StageConfig) ([]Stage, error) {
	indegree := make(map[Stage]int, len(stages))
	dependents := make(map[Stage][]Stage, len(stages))

	for s := range stages {
		indegree[s] = 0
	}
	for s, cfg := range stages {
		for _, dep := range cfg.DependsOn {
			if _, ok := stages[dep]; !ok {
				return nil, fmt.Errorf("stage %s depends on unconfigured stage %s", s, dep)
			}
			indegree[s]++
			dependents[dep] = append(dependents[dep], s)
		}
	}

	var ready []Stage
	for _, s := range CanonicalOrder {
		if _, ok := stages[s]; ok && indegree[s] == 0 {
			ready = append(ready, s)
		}
	}

	var order []Stage
	visited := make(map[Stage]bool, len(stages))
	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		if visited[next] {
			continue
		}
		visited[next] = true
		if stages[next].Mode != ModeSkip {
			order = append(order, next)
		}

		newlyReady := make([]Stage, 0)
		for _, dep := range dependents[next] {
			indegree[dep]--
			if indegree[dep] == 0 {
				newlyReady = append(newlyReady, dep)
			}
		}
		// insert newly-ready stages preserving canonical order
		ready = mergeCanonical(ready, newlyReady)
	}

	if len(visited) != len(stages) {
		return nil, fmt.Errorf("stage dependency graph has a cycle")
	}
	return order, nil
}

// mergeCanonical merges newlyReady into ready keeping CanonicalOrder as the
// tie-break priority for any stage that becomes ready simultaneously.
func mergeCanonical(ready, newlyReady []Stage) []Stage {
	if len(newlyReady) == 0 {
		return ready
	}
	combined := append(append([]Stage{}, ready...), newlyReady...)
	rank := make(map[Stage]int, len(CanonicalOrder))
	for i, s := range CanonicalOrder {
		rank[s] = i
	}
	for i := 1; i < len(combined); i++ {
		for j := i; j > 0 && rank[combined[j]] < rank[combined[j-1]]; j-- {
			combined[j], combined[j-1] = combined[j-1], combined[j]
		}
	}
	return combined
}
