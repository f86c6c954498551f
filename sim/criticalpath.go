package sim

import "strings"

// criticalPath reconstructs the longest causal chain ending at the run's
// terminal (makespan) instance and renders it ">"-joined (§4.4).
//
// The terminal instance is the non-delay instance with the maximum EndMs,
// ties broken by the highest ID. From there, each step prefers the causal
// parent (ParentInstanceID) and falls back to the capacity parent
// (CapacityParentInstanceID) only when no causal parent is recorded —
// capacity parents explain queueing delay, causal parents explain true
// dependence.
func criticalPath(result *RunResult) string {
	terminal := terminalInstance(result.Instances)
	if terminal < 0 {
		return ""
	}

	var names []string
	cur := terminal
	for cur != -1 {
		inst := &result.Instances[cur]
		names = append(names, inst.TaskName)

		if inst.ParentInstanceID != noParent {
			cur = int(inst.ParentInstanceID)
		} else if inst.CapacityParentInstanceID != noParent {
			cur = int(inst.CapacityParentInstanceID)
		} else {
			cur = -1
		}
	}

	// names was collected terminal-to-root; reverse to root-to-terminal.
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return strings.Join(names, ">")
}

// terminalInstance returns the index of the non-delay instance with the
// greatest EndMs (ties broken by highest ID), or -1 if there is none.
func terminalInstance(instances []TaskInstance) int {
	best := -1
	for i := range instances {
		if instances[i].Synthetic {
			continue
		}
		if best == -1 {
			best = i
			continue
		}
		b := &instances[best]
		c := &instances[i]
		if c.EndMs > b.EndMs || (c.EndMs == b.EndMs && c.ID > b.ID) {
			best = i
		}
	}
	return best
}
