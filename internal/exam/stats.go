package exam

import "math"

// Score buckets, inclusive upper bounds.
var scoreBuckets = []struct {
	label string
	upper float64
}{
	{"0-20", 20}, {"21-40", 40}, {"41-60", 60}, {"61-80", 80}, {"81-100", math.Inf(1)},
}

type Stats struct {
	TestID            string         `json:"test_id"`
	TestTitle         string         `json:"test_title"`
	TotalSubmissions  int            `json:"total_submissions"`
	PassedSubmissions int            `json:"passed_submissions"`
	PassRate          float64        `json:"pass_rate"`
	AverageScore      float64        `json:"average_score"`
	ScoreDistribution map[string]int `json:"score_distribution"`
}

func ComputeStats(t Test, subs []Submission) Stats {
	st := Stats{
		TestID:            t.ID,
		TestTitle:         t.Title,
		TotalSubmissions:  len(subs),
		ScoreDistribution: map[string]int{},
	}
	for _, b := range scoreBuckets {
		st.ScoreDistribution[b.label] = 0
	}
	if len(subs) == 0 {
		return st
	}
	var sum float64
	for _, s := range subs {
		if s.Passed {
			st.PassedSubmissions++
		}
		sum += s.Score
		for _, b := range scoreBuckets {
			if s.Score <= b.upper {
				st.ScoreDistribution[b.label]++
				break
			}
		}
	}
	st.PassRate = float64(st.PassedSubmissions) * 100 / float64(len(subs))
	st.AverageScore = sum / float64(len(subs))
	return st
}
