package reconcile

import (
	"github.com/evanofslack/dynaflare/internal/provider"
)

// Match is a desired name found in the remote inventory.
type Match struct {
	Name    string
	ID      string
	Content string
	// Stale is set when Content differs from the current public IP.
	Stale bool
}

type Plan struct {
	IP string
	// Matched holds one entry per remote record with a desired name, in
	// remote scan order. A name may appear more than once.
	Matched []Match
	// Unmatched holds desired names with no remote record, in desired order.
	Unmatched []string
}

func (p Plan) Unchanged() []Match {
	return p.filter(false)
}

func (p Plan) Changed() []Match {
	return p.filter(true)
}

func (p Plan) filter(stale bool) []Match {
	var out []Match
	for _, m := range p.Matched {
		if m.Stale == stale {
			out = append(out, m)
		}
	}
	return out
}

// Names splits the matched desired names. A name is changed when any of its
// records is stale. Names keep the order of their first record.
func (p Plan) Names() (unchanged, changed []string) {
	stale := make(map[string]bool, len(p.Matched))
	var order []string
	for _, m := range p.Matched {
		if _, ok := stale[m.Name]; !ok {
			order = append(order, m.Name)
		}
		stale[m.Name] = stale[m.Name] || m.Stale
	}
	for _, name := range order {
		if stale[name] {
			changed = append(changed, name)
		} else {
			unchanged = append(unchanged, name)
		}
	}
	return unchanged, changed
}

// IsConvergent reports whether the remote inventory already matches.
func (p Plan) IsConvergent() bool {
	return len(p.Unmatched) == 0 && len(p.Changed()) == 0
}

// Batch builds the write for this plan. Posts are included only when
// records are missing.
func (p Plan) Batch(ttl int) provider.Batch {
	var batch provider.Batch
	for _, m := range p.Changed() {
		batch.Patches = append(batch.Patches, provider.Patch{ID: m.ID, Content: p.IP})
	}
	for _, name := range p.Unmatched {
		batch.Posts = append(batch.Posts, provider.Post{Name: name, Content: p.IP, TTL: ttl})
	}
	return batch
}

type Results struct {
	Zone string
	// RecordIDs lists matched ids in scan order followed by created ids.
	RecordIDs []string
	IP        string
	Created   int
	Updated   int
	Unchanged int
}
