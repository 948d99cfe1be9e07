package retriever

import "sort"

const (
	defaultRRFK             = 60
	defaultHybridCandidates = 30
)

// rankedList is one ranked list of virtual paths (best first) to fuse,
// with an optional weight (default 1).
type rankedList struct {
	ids    []string
	weight float64
}

// fused is one document's RRF score before the top-rank bonus.
type fused struct {
	id    string
	score float64
}

// rrfFuse implements the fusion algorithm from spec.md §4.8: for each
// document d, score(d) = Σ_i weight_i / (k + rank_i(d)) summed over the
// lists containing d, sorted descending (ties broken by lexicographically
// smaller id), then a top-rank bonus is added based on final position:
// +0.05 for rank 0, +0.02 for ranks 1-2, +0.01 for ranks 3-9.
func rrfFuse(lists []rankedList, k int) []fused {
	if k <= 0 {
		k = defaultRRFK
	}

	scores := make(map[string]float64)
	for _, list := range lists {
		w := list.weight
		if w == 0 {
			w = 1
		}
		for rank, id := range list.ids {
			scores[id] += w / float64(k+rank)
		}
	}

	results := make([]fused, 0, len(scores))
	for id, score := range scores {
		results = append(results, fused{id: id, score: score})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].id < results[j].id
	})

	for rank := range results {
		results[rank].score += topRankBonus(rank)
	}
	return results
}

func topRankBonus(rank int) float64 {
	switch {
	case rank == 0:
		return 0.05
	case rank <= 2:
		return 0.02
	case rank <= 9:
		return 0.01
	default:
		return 0
	}
}
