package model

import "time"

type ConversationAnalysis struct {
	AverageEmotion float64 `json:"averageEmotion"`
	AverageFluency float64 `json:"averageFluency"`
	AverageWording float64 `json:"averageWording"`
	TotalLength    int     `json:"totalLength"`
	Conversations  int     `json:"conversations"`
}

// Trends are relative changes (current/previous - 1). A nil value means the
// previous window had nothing to compare against.
type Trends struct {
	AverageEmotion *float64 `json:"averageEmotion"`
	AverageFluency *float64 `json:"averageFluency"`
	AverageWording *float64 `json:"averageWording"`
	TotalLength    *float64 `json:"totalLength"`
	Conversations  *float64 `json:"conversations"`
}

type AnalyticsReport struct {
	Trends        Trends               `json:"trends"`
	CurrentStreak int                  `json:"currentStreak"`
	Analytics     ConversationAnalysis `json:"analytics"`
}

// Analyze averages scores over the scored conversations and sums length over all of them.
func Analyze(convs []*Conversation) ConversationAnalysis {
	var out ConversationAnalysis
	var scored int
	var e, f, w int
	for _, c := range convs {
		out.TotalLength += c.Length
		if !c.Stats.Scored() {
			continue
		}
		scored++
		e += *c.Stats.EmotionScore
		f += *c.Stats.FluencyScore
		w += *c.Stats.WordingScore
	}
	out.Conversations = len(convs)
	if scored > 0 {
		out.AverageEmotion = float64(e) / float64(scored)
		out.AverageFluency = float64(f) / float64(scored)
		out.AverageWording = float64(w) / float64(scored)
	}
	return out
}

func CalculateTrends(previous, current ConversationAnalysis) Trends {
	return Trends{
		AverageEmotion: trend(previous.AverageEmotion, current.AverageEmotion),
		AverageFluency: trend(previous.AverageFluency, current.AverageFluency),
		AverageWording: trend(previous.AverageWording, current.AverageWording),
		TotalLength:    trend(float64(previous.TotalLength), float64(current.TotalLength)),
		Conversations:  trend(float64(previous.Conversations), float64(current.Conversations)),
	}
}

func trend(a, b float64) *float64 {
	if a == 0 {
		return nil
	}
	v := b/a - 1
	return &v
}

const day = 24 * time.Hour

// Streak counts consecutive calendar days (UTC) with at least one conversation,
// ending today or yesterday. times must be sorted newest first.
func Streak(times []time.Time, now time.Time) int {
	now = now.UTC()
	var last time.Time
	streak := 0
	for _, t := range times {
		d := t.UTC().Truncate(day)
		if last.IsZero() {
			if int(now.Sub(d)/day) > 1 {
				return 0
			}
			last = d
			streak = 1
			continue
		}
		switch diff := int(last.Sub(d) / day); {
		case diff == 1:
			streak++
			last = d
		case diff > 1:
			return streak
		}
	}
	return streak
}
