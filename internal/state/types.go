package state

import "time"

// Snapshot is the last known state of the current run.
type Snapshot struct {
	Zone      string    `json:"zone"`
	RecordIDs []string  `json:"recordIds"`
	IP        string    `json:"ip"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s Snapshot) IsEmpty() bool {
	return s.Zone == "" && len(s.RecordIDs) == 0 && s.IP == ""
}
