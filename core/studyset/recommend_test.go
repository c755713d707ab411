package studyset

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func candidateSet(id, title, subject, level string, createdAt time.Time) StudySet {
	return StudySet{ID: id, Title: title, Subject: subject, Level: level, CreatedAt: createdAt}
}

func progressAt(setID string, mastery float64, at time.Time) Progress {
	return Progress{UserID: "s1", SetID: setID, MasteryPercentage: mastery, LastActivity: at}
}

func TestRecommenderNoHistory(t *testing.T) {
	r := NewRecommender()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("earliest beginner set wins", func(t *testing.T) {
		snap := Snapshot{
			Candidates: []StudySet{
				candidateSet("med", "Algebra II", "Math", "Medium", base),
				candidateSet("beg-2", "Fractions", "Math", "Beginner", base.Add(2*time.Hour)),
				candidateSet("beg-1", "Counting", "Math", "Beginner", base.Add(time.Hour)),
			},
		}
		// candidates arrive pre-sorted by creation time
		snap.Candidates = []StudySet{snap.Candidates[0], snap.Candidates[2], snap.Candidates[1]}

		rec, ok := r.Next(snap)
		if !ok {
			t.Fatal("expected a recommendation")
		}
		if rec.SetID != "beg-1" {
			t.Errorf("got set %s, want beg-1", rec.SetID)
		}
		if rec.Reason != "Start your learning journey with this beginner-friendly set!" {
			t.Errorf("unexpected reason: %q", rec.Reason)
		}
	})

	t.Run("easy counts as beginner-friendly", func(t *testing.T) {
		snap := Snapshot{Candidates: []StudySet{
			candidateSet("hard", "Calculus", "Math", "Hard", base),
			candidateSet("easy", "Addition", "Math", "Easy", base.Add(time.Hour)),
		}}
		rec, ok := r.Next(snap)
		if !ok || rec.SetID != "easy" {
			t.Errorf("got %v (%v), want easy", rec.SetID, ok)
		}
	})

	t.Run("unlevelled set defaults to Beginner difficulty", func(t *testing.T) {
		snap := Snapshot{Candidates: []StudySet{
			candidateSet("plain", "Vocab", "English", "", base),
		}}
		rec, ok := r.Next(snap)
		if !ok {
			t.Fatal("expected a recommendation")
		}
		if rec.Difficulty != "Beginner" {
			t.Errorf("got difficulty %q, want Beginner", rec.Difficulty)
		}
	})

	t.Run("no beginner sets falls back to earliest unmastered", func(t *testing.T) {
		snap := Snapshot{Candidates: []StudySet{
			candidateSet("hard", "Calculus", "Math", "Hard", base),
			candidateSet("adv", "Topology", "Math", "Advanced", base.Add(time.Hour)),
		}}
		rec, ok := r.Next(snap)
		if !ok || rec.SetID != "hard" {
			t.Errorf("got %v (%v), want hard", rec.SetID, ok)
		}
		if rec.Reason != "Try this study set to get started!" {
			t.Errorf("unexpected reason: %q", rec.Reason)
		}
	})

	t.Run("no candidates", func(t *testing.T) {
		if _, ok := r.Next(Snapshot{}); ok {
			t.Error("expected no recommendation from an empty pool")
		}
	})

	t.Run("mastered sets are excluded from the default", func(t *testing.T) {
		snap := Snapshot{
			History: []Progress{progressAt("beg-1", 100, base.Add(time.Hour))},
			Candidates: []StudySet{
				candidateSet("beg-1", "Counting", "Math", "Beginner", base),
				candidateSet("beg-2", "Shapes", "Math", "Beginner", base.Add(time.Minute)),
			},
		}
		rec, ok := r.defaultBeginnerSet(snap)
		if !ok || rec.SetID != "beg-2" {
			t.Errorf("got %v (%v), want beg-2", rec.SetID, ok)
		}
	})
}

func TestRecommenderLowScore(t *testing.T) {
	r := NewRecommender()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	now := base.Add(24 * time.Hour)
	recent := candidateSet("frac", "Fractions", "Math", "Beginner", base)

	t.Run("same subject and level practice set", func(t *testing.T) {
		snap := Snapshot{
			History:   []Progress{progressAt("frac", 45, now)},
			RecentSet: recent,
			Candidates: []StudySet{
				recent,
				candidateSet("count", "Counting", "Math", "Beginner", base.Add(time.Hour)),
				candidateSet("alg", "Algebra", "Math", "Medium", base.Add(2*time.Hour)),
			},
		}
		rec, ok := r.Next(snap)
		if !ok || rec.SetID != "count" {
			t.Fatalf("got %v (%v), want count", rec.SetID, ok)
		}
		want := "You scored 45% on Fractions. Practice more at the same level to improve."
		if rec.Reason != want {
			t.Errorf("reason = %q, want %q", rec.Reason, want)
		}
	})

	t.Run("no peer set retries the same set", func(t *testing.T) {
		snap := Snapshot{
			History:    []Progress{progressAt("frac", 45, now)},
			RecentSet:  recent,
			Candidates: []StudySet{recent},
		}
		rec, ok := r.Next(snap)
		if !ok || rec.SetID != "frac" {
			t.Fatalf("got %v (%v), want frac", rec.SetID, ok)
		}
		want := "You scored 45% on this set. Try again to improve your score!"
		if rec.Reason != want {
			t.Errorf("reason = %q, want %q", rec.Reason, want)
		}
	})

	t.Run("mastered peer is skipped", func(t *testing.T) {
		snap := Snapshot{
			History: []Progress{
				progressAt("frac", 45, now),
				progressAt("count", 90, now.Add(-time.Hour)),
			},
			RecentSet: recent,
			Candidates: []StudySet{
				recent,
				candidateSet("count", "Counting", "Math", "Beginner", base.Add(time.Hour)),
			},
		}
		rec, _ := r.Next(snap)
		if rec.SetID != "frac" {
			t.Errorf("got %s, want frac (retry)", rec.SetID)
		}
	})
}

func TestRecommenderHighScore(t *testing.T) {
	r := NewRecommender()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	now := base.Add(24 * time.Hour)
	recent := candidateSet("frac", "Fractions", "Math", "Beginner", base)

	t.Run("next level in the same topic", func(t *testing.T) {
		snap := Snapshot{
			History:   []Progress{progressAt("frac", 85, now)},
			RecentSet: recent,
			Candidates: []StudySet{
				recent,
				candidateSet("alg", "Pre-Algebra", "Math", "Easy", base.Add(time.Hour)),
				candidateSet("vocab", "Vocab", "English", "Easy", base.Add(2*time.Hour)),
			},
		}
		rec, ok := r.Next(snap)
		if !ok || rec.SetID != "alg" {
			t.Fatalf("got %v (%v), want alg", rec.SetID, ok)
		}
		want := "Great job! You scored 85% on Fractions. Ready for the next level?"
		if rec.Reason != want {
			t.Errorf("reason = %q, want %q", rec.Reason, want)
		}
	})

	t.Run("no harder set falls back to the same topic", func(t *testing.T) {
		snap := Snapshot{
			History:   []Progress{progressAt("frac", 85, now)},
			RecentSet: recent,
			Candidates: []StudySet{
				recent,
				candidateSet("shapes", "Shapes", "Math", "Beginner", base.Add(time.Hour)),
			},
		}
		rec, ok := r.Next(snap)
		if !ok || rec.SetID != "shapes" {
			t.Fatalf("got %v (%v), want shapes", rec.SetID, ok)
		}
		want := "You did well on Fractions! Try another set in Math."
		if rec.Reason != want {
			t.Errorf("reason = %q, want %q", rec.Reason, want)
		}
	})

	t.Run("exhausted topic falls through to beginner default", func(t *testing.T) {
		snap := Snapshot{
			History:   []Progress{progressAt("frac", 85, now)},
			RecentSet: recent,
			Candidates: []StudySet{
				recent,
				candidateSet("vocab", "Vocab", "English", "Beginner", base.Add(time.Hour)),
			},
		}
		rec, ok := r.Next(snap)
		if !ok || rec.SetID != "vocab" {
			t.Fatalf("got %v (%v), want vocab", rec.SetID, ok)
		}
		if !strings.HasPrefix(rec.Reason, "Start your learning journey") {
			t.Errorf("unexpected reason: %q", rec.Reason)
		}
	})

	t.Run("topping out at Advanced skips the ladder step", func(t *testing.T) {
		adv := candidateSet("top", "Topology", "Math", "Advanced", base)
		snap := Snapshot{
			History:   []Progress{progressAt("top", 95, now)},
			RecentSet: adv,
			Candidates: []StudySet{
				adv,
				candidateSet("hard", "Calculus", "Math", "Hard", base.Add(time.Hour)),
			},
		}
		rec, ok := r.Next(snap)
		if !ok || rec.SetID != "hard" {
			t.Fatalf("got %v (%v), want hard", rec.SetID, ok)
		}
		want := "You did well on Topology! Try another set in Math."
		if rec.Reason != want {
			t.Errorf("reason = %q, want %q", rec.Reason, want)
		}
	})
}

func TestRecommenderBoundaries(t *testing.T) {
	r := NewRecommender()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	now := base.Add(24 * time.Hour)
	recent := candidateSet("frac", "Fractions", "Math", "Beginner", base)
	peer := candidateSet("count", "Counting", "Math", "Beginner", base.Add(time.Hour))
	next := candidateSet("alg", "Pre-Algebra", "Math", "Easy", base.Add(2*time.Hour))

	tests := []struct {
		name       string
		mastery    float64
		wantSet    string
		wantReason string
	}{
		{
			name: "just under the accuracy split is struggling", mastery: 59.99, wantSet: "count",
			wantReason: fmt.Sprintf("You scored %.0f%% on Fractions. Practice more at the same level to improve.", 59.99),
		},
		{
			name: "exactly the accuracy split is doing well", mastery: 60, wantSet: "alg",
			wantReason: "Great job! You scored 60% on Fractions. Ready for the next level?",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := Snapshot{
				History:    []Progress{progressAt("frac", tt.mastery, now)},
				RecentSet:  recent,
				Candidates: []StudySet{recent, peer, next},
			}
			rec, ok := r.Next(snap)
			if !ok || rec.SetID != tt.wantSet {
				t.Fatalf("got %v (%v), want %s", rec.SetID, ok, tt.wantSet)
			}
			if rec.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", rec.Reason, tt.wantReason)
			}
		})
	}

	t.Run("mastery cutoff is inclusive", func(t *testing.T) {
		snap := Snapshot{
			History: []Progress{
				progressAt("frac", 85, now),
				progressAt("alg", 80, now.Add(-time.Hour)),     // mastered, excluded
				progressAt("count", 79.99, now.Add(-time.Hour)), // not mastered
			},
			RecentSet:  recent,
			Candidates: []StudySet{recent, peer, next},
		}
		rec, ok := r.Next(snap)
		if !ok {
			t.Fatal("expected a recommendation")
		}
		if rec.SetID == "alg" {
			t.Error("recommended a mastered set")
		}
		if rec.SetID != "count" {
			t.Errorf("got %s, want count", rec.SetID)
		}
	})
}

func TestRecommendationFallbacks(t *testing.T) {
	rec := recommend(StudySet{ID: "s1", Title: "Untitled"}, "r")
	if rec.Topic != "General" {
		t.Errorf("topic = %q, want General", rec.Topic)
	}
	if rec.Difficulty != "Medium" {
		t.Errorf("difficulty = %q, want Medium", rec.Difficulty)
	}
}
