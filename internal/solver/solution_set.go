package solver

import "sort"

// SolutionSet keeps the best distinct keys seen, highest log-likelihood
// first.
type SolutionSet struct {
	set  []Sample
	seen map[string]bool
	nr   int
}

func NewSolutionSet(size int) *SolutionSet {
	if size < 1 {
		size = 1
	}
	return &SolutionSet{set: make([]Sample, 0, size+1), seen: make(map[string]bool), nr: size}
}

// Add reports whether s made it into the set.
func (ss *SolutionSet) Add(s Sample) bool {
	if len(ss.set) >= ss.nr && !better(s, ss.set[len(ss.set)-1]) {
		return false
	}
	id := s.State.key.id()
	if ss.seen[id] {
		return false
	}
	ss.seen[id] = true

	ss.set = append(ss.set, s)
	sort.SliceStable(ss.set, func(i, j int) bool { return better(ss.set[i], ss.set[j]) })

	if len(ss.set) > ss.nr {
		delete(ss.seen, ss.set[ss.nr].State.key.id())
		ss.set = ss.set[:ss.nr]
	}
	return true
}

// Solutions returns the ranking.
func (ss *SolutionSet) Solutions() []Sample {
	return append([]Sample(nil), ss.set...)
}

// better orders by log-likelihood, then earlier restart and iteration.
func better(a, b Sample) bool {
	if a.LogLik != b.LogLik {
		return a.LogLik > b.LogLik
	}
	if a.Restart != b.Restart {
		return a.Restart < b.Restart
	}
	return a.Iteration < b.Iteration
}
