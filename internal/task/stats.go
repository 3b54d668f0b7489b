package task

import "math"

type Stats struct {
	Total      int
	Completed  int
	Pending    int
	ByPriority map[Priority]int
}

// ComputeStats counts the whole collection; filters never apply here.
func ComputeStats(tasks []Task) Stats {
	s := Stats{
		Total:      len(tasks),
		ByPriority: make(map[Priority]int, 3),
	}
	for _, p := range Priorities() {
		s.ByPriority[p] = 0
	}
	for _, t := range tasks {
		if t.Completed {
			s.Completed++
		}
		s.ByPriority[t.Priority]++
	}
	s.Pending = s.Total - s.Completed
	return s
}

// CompletionRate is the rounded percentage of completed tasks.
func (s Stats) CompletionRate() int {
	if s.Total == 0 {
		return 0
	}
	return int(math.Round(float64(s.Completed) / float64(s.Total) * 100))
}
