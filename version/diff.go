package version

import "strings"

// sampleCap bounds the number of example lines reported per diff bucket.
const sampleCap = 10

// DiffResult reports the difference between two snapshots.
type DiffResult struct {
	From           int      `json:"from"`
	To             int      `json:"to"`
	AddedTriples   int      `json:"added_triples"`
	RemovedTriples int      `json:"removed_triples"`
	Unchanged      int      `json:"unchanged_triples"`
	AddedSample    []string `json:"added_sample,omitempty"`
	RemovedSample  []string `json:"removed_sample,omitempty"`
}

// Diff compares the snapshots at two version indices as sets of
// serialized-triple lines: added lines appear only in b, removed lines only
// in a. This is a textual diff, not a semantic RDF diff; two formattings of
// an equivalent triple count as a removal plus an addition. The canonical
// serializer keeps lines stable for identical triples, which is what makes
// the comparison meaningful.
func (tr *Tracker) Diff(a, b int) (DiffResult, error) {
	va, err := tr.Get(a)
	if err != nil {
		return DiffResult{}, err
	}
	vb, err := tr.Get(b)
	if err != nil {
		return DiffResult{}, err
	}

	setA := lineSet(va.Snapshot)
	setB := lineSet(vb.Snapshot)

	result := DiffResult{From: a, To: b}
	for line := range setB {
		if setA[line] {
			result.Unchanged++
			continue
		}
		result.AddedTriples++
		if len(result.AddedSample) < sampleCap {
			result.AddedSample = append(result.AddedSample, line)
		}
	}
	for line := range setA {
		if !setB[line] {
			result.RemovedTriples++
			if len(result.RemovedSample) < sampleCap {
				result.RemovedSample = append(result.RemovedSample, line)
			}
		}
	}
	return result, nil
}

func lineSet(snapshot string) map[string]bool {
	set := make(map[string]bool)
	for _, line := range strings.Split(snapshot, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			set[line] = true
		}
	}
	return set
}
