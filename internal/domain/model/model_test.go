//go:build !integration

package model

import (
	"errors"
	"testing"
	"time"
)

func TestParseScore(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		want    Score
		wantErr bool
	}{
		{"plain", `{"emotionScore":70,"fluencyScore":81.6,"wordingScore":12}`, Score{70, 82, 12}, false},
		{"fenced", "```json\n{\"emotionScore\":10,\"fluencyScore\":20,\"wordingScore\":30}\n```", Score{10, 20, 30}, false},
		{"clamped", `{"emotionScore":140,"fluencyScore":-3,"wordingScore":1e300}`, Score{100, 0, 100}, false},
		{"missing fields", `{"emotionScore":65}`, Score{65, 50, 50}, false},
		{"zero kept", `{"emotionScore":0,"fluencyScore":0,"wordingScore":0}`, Score{0, 0, 0}, false},
		{"string numbers", `{"emotionScore":"77","fluencyScore":"n/a","wordingScore":true}`, Score{77, 50, 50}, false},
		{"malformed", `{"emotionScore":`, DefaultScore(), true},
		{"not object", `[1,2,3]`, DefaultScore(), true},
		{"null", `null`, DefaultScore(), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseScore(tc.raw)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
			for _, v := range []int{got.Emotion, got.Fluency, got.Wording} {
				if v < 0 || v > 100 {
					t.Fatalf("score out of range: %+v", got)
				}
			}
		})
	}
}

func TestOutcome(t *testing.T) {
	ok := Ok(Score{1, 2, 3})
	if ok.IsDegraded() {
		t.Fatal("Ok outcome reported degraded")
	}
	cause := errors.New("upstream down")
	d := Degraded(DefaultScore(), cause)
	if !d.IsDegraded() || !errors.Is(d.Cause, cause) || d.Value != DefaultScore() {
		t.Fatalf("unexpected degraded outcome %+v", d)
	}
	if !Degraded[string]("", nil).IsDegraded() {
		t.Fatal("nil cause must still mark the outcome degraded")
	}
}

func TestNewPage(t *testing.T) {
	req := PageRequest{Page: 5, Limit: 10}
	p := NewPage[int](nil, req, 23)
	if p.Size != 0 || len(p.Result) != 0 || p.Result == nil {
		t.Fatalf("beyond last page should be empty non-nil: %+v", p)
	}
	if p.LastPage != 3 || p.Limit != 10 || p.Page != 5 || p.FirstPage != 1 {
		t.Fatalf("unexpected envelope %+v", p)
	}
	if got := NewPage([]int{1, 2}, PageRequest{Page: 1, Limit: 2}, 2); got.LastPage != 1 || got.Size != 2 {
		t.Fatalf("unexpected %+v", got)
	}
	if (PageRequest{Page: 0, Limit: 10}).Valid() || (PageRequest{Page: 1, Limit: 101}).Valid() {
		t.Fatal("invalid page request accepted")
	}
	if off := (PageRequest{Page: 3, Limit: 20}).Offset(); off != 40 {
		t.Fatalf("offset = %d", off)
	}
}

func TestChatSessionTranscript(t *testing.T) {
	s := NewChatSession("u", "s", "c", "r", "SYSTEM\n")
	s.AddUser("hi")
	s.AddAssistant("hello")
	want := "SYSTEM\nUser: hi\nAssistant: hello\n"
	if s.Transcript() != want {
		t.Fatalf("transcript = %q", s.Transcript())
	}
	if s.Turns() != 1 {
		t.Fatalf("turns = %d", s.Turns())
	}
	s.StartedAt = time.Now().Add(-90*time.Second - 400*time.Millisecond)
	if got := s.ElapsedSeconds(time.Now()); got != 90 {
		t.Fatalf("elapsed = %d", got)
	}
}

func TestScenarioRounds(t *testing.T) {
	s, err := NewScenario("owner", ScenarioInput{
		Title:      "Interview",
		Category:   CategoryBusiness,
		Status:     ScenarioEditing,
		Objectives: []string{"introduce yourself"},
		Rounds:     []Round{{Prompt: "greet"}, {ID: "fixed", Prompt: "ask"}},
	})
	if err != nil {
		t.Fatalf("NewScenario: %v", err)
	}
	if s.Rounds[0].ID == "" || s.Round("fixed") == nil || s.Round("nope") != nil {
		t.Fatalf("round ids not assigned or lookup broken: %+v", s.Rounds)
	}
	if s.Tags == nil || s.Languages == nil {
		t.Fatal("list fields must serialize as empty arrays")
	}
	if _, err := NewScenario("owner", ScenarioInput{Status: "bogus", Objectives: []string{"x"}}); err == nil {
		t.Fatal("invalid status accepted")
	}
}

func intp(v int) *int { return &v }

func TestAnalyzeAndTrends(t *testing.T) {
	prev := Analyze([]*Conversation{
		{Length: 60, Stats: Stats{intp(40), intp(50), intp(60)}},
		{Length: 40},
	})
	if prev.AverageEmotion != 40 || prev.TotalLength != 100 || prev.Conversations != 2 {
		t.Fatalf("prev = %+v", prev)
	}
	cur := Analyze([]*Conversation{
		{Length: 50, Stats: Stats{intp(60), intp(50), intp(90)}},
	})
	tr := CalculateTrends(prev, cur)
	if tr.AverageEmotion == nil || *tr.AverageEmotion != 0.5 {
		t.Fatalf("emotion trend = %v", tr.AverageEmotion)
	}
	if *tr.TotalLength != -0.5 || *tr.Conversations != -0.5 {
		t.Fatalf("length/count trends = %v %v", *tr.TotalLength, *tr.Conversations)
	}
	empty := CalculateTrends(ConversationAnalysis{}, cur)
	if empty.AverageEmotion != nil || empty.Conversations != nil {
		t.Fatal("trend against an empty window must be null")
	}
}

func TestStreak(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	at := func(d, h int) time.Time { return time.Date(2026, 3, d, h, 0, 0, 0, time.UTC) }
	cases := []struct {
		name  string
		times []time.Time
		want  int
	}{
		{"none", nil, 0},
		{"today only", []time.Time{at(10, 9)}, 1},
		{"consecutive with same-day repeats", []time.Time{at(10, 9), at(10, 1), at(9, 22), at(8, 8)}, 3},
		{"from yesterday", []time.Time{at(9, 23), at(8, 1)}, 2},
		{"gap breaks", []time.Time{at(10, 1), at(9, 1), at(6, 1)}, 2},
		{"stale", []time.Time{at(7, 1), at(6, 1)}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Streak(tc.times, now); got != tc.want {
				t.Fatalf("Streak = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestIDs(t *testing.T) {
	id := NewID()
	if !IsID(id) || IsID("not-an-id") {
		t.Fatalf("IsID mismatch for %q", id)
	}
}
