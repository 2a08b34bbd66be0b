package reconcile

import (
	"github.com/evanofslack/dynaflare/internal/provider"
)

// BuildPlan partitions the desired names against the remote records using
// exact, case-sensitive name equality. Every remote record carrying a desired
// name is matched, so a name served by several records keeps all of them in
// step. Duplicate desired names count once.
func BuildPlan(desired []string, remote []provider.Record, ip string) Plan {
	plan := Plan{IP: ip}

	wanted := make(map[string]bool, len(desired))
	for _, name := range desired {
		wanted[name] = true
	}

	matched := make(map[string]bool, len(desired))
	for _, r := range remote {
		if !wanted[r.Name] {
			continue
		}
		matched[r.Name] = true
		plan.Matched = append(plan.Matched, Match{
			Name:    r.Name,
			ID:      r.ID,
			Content: r.Content,
			Stale:   r.Content != ip,
		})
	}

	seen := make(map[string]bool, len(desired))
	for _, name := range desired {
		if matched[name] || seen[name] {
			continue
		}
		seen[name] = true
		plan.Unmatched = append(plan.Unmatched, name)
	}
	return plan
}
