package studyset

import (
	"fmt"
)

// Mastery and accuracy thresholds. MasteryCutoff is inclusive: a set with
// recorded mastery of exactly 80 is considered mastered and never
// recommended again. accuracySplit is inclusive on the high side: exactly
// 60 counts as doing well.
const (
	MasteryCutoff  = 80.0
	accuracySplit  = 60.0
	fallbackTopic  = "General"
	fallbackLevel  = "Medium"
	beginnerLevel  = "Beginner"
	defaultLadderN = 5
)

// DifficultyLevel is one rung of the ladder: a level name and its rank.
// Several names may share a rank; the default ladder is a bijection but
// the table keeps ties and gaps visible.
type DifficultyLevel struct {
	Name string
	Rank int
}

func defaultLadder() []DifficultyLevel {
	return []DifficultyLevel{
		{Name: "Beginner", Rank: 1},
		{Name: "Easy", Rank: 2},
		{Name: "Medium", Rank: 3},
		{Name: "Hard", Rank: 4},
		{Name: "Advanced", Rank: 5},
	}
}

// Recommendation is the engine's single suggestion.
type Recommendation struct {
	SetID      string `json:"studySetId"`
	Title      string `json:"title"`
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`
	Reason     string `json:"reason"`
}

// Snapshot is the read-only input to the engine: the viewer's progress
// history and the candidate pool, both gathered up front. The engine does
// no I/O.
type Snapshot struct {
	// History is the viewer's progress rows, most recent activity first.
	History []Progress
	// RecentSet is the set behind History[0]; ignored when History is empty.
	RecentSet StudySet
	// Candidates are the sets visible to the viewer, ordered by creation
	// time ascending (ties broken by id ascending) so first-match is
	// deterministic.
	Candidates []StudySet
}

// mastered returns the ids of sets the viewer has already mastered.
func (s Snapshot) mastered() map[string]bool {
	m := make(map[string]bool, len(s.History))
	for _, p := range s.History {
		if p.MasteryPercentage >= MasteryCutoff {
			m[p.SetID] = true
		}
	}
	return m
}

// Recommender picks the next set to study from a Snapshot.
type Recommender struct {
	ladder []DifficultyLevel
}

func NewRecommender() *Recommender {
	return &Recommender{ladder: defaultLadder()}
}

// rank maps a level name to its ladder rank; unknown or empty names
// default to Medium's rank.
func (r *Recommender) rank(level string) int {
	for _, dl := range r.ladder {
		if dl.Name == level {
			return dl.Rank
		}
	}
	return r.rank(fallbackLevel)
}

// namesAtRank returns every level name at the given rank.
func (r *Recommender) namesAtRank(rank int) []string {
	var names []string
	for _, dl := range r.ladder {
		if dl.Rank == rank {
			names = append(names, dl.Name)
		}
	}
	return names
}

// Next returns the recommended set, or false when no candidate is
// eligible. It never errors: an empty pool is an answer, not a failure.
func (r *Recommender) Next(snap Snapshot) (Recommendation, bool) {
	if len(snap.History) == 0 {
		return r.defaultBeginnerSet(snap)
	}

	recent := snap.History[0]
	recentSet := snap.RecentSet
	accuracy := recent.MasteryPercentage
	topic := recentSet.Subject
	mastered := snap.mastered()

	if accuracy < accuracySplit {
		// Struggling: practice more at the same level.
		for _, set := range snap.Candidates {
			if set.ID == recentSet.ID || mastered[set.ID] {
				continue
			}
			if set.Subject == topic && set.Level == recentSet.Level {
				return recommend(set, fmt.Sprintf(
					"You scored %.0f%% on %s. Practice more at the same level to improve.",
					accuracy, recentSet.Title,
				)), true
			}
		}
		// Nothing else at this level: retry the same set.
		return recommend(recentSet, fmt.Sprintf(
			"You scored %.0f%% on this set. Try again to improve your score!",
			accuracy,
		)), true
	}

	// Doing well: climb the ladder within the same topic.
	nextNames := r.namesAtRank(r.rank(recentSet.Level) + 1)
	if len(nextNames) > 0 && topic != "" {
		for _, set := range snap.Candidates {
			if mastered[set.ID] || set.Subject != topic {
				continue
			}
			if levelIn(set.Level, nextNames) {
				return recommend(set, fmt.Sprintf(
					"Great job! You scored %.0f%% on %s. Ready for the next level?",
					accuracy, recentSet.Title,
				)), true
			}
		}
	}

	// No harder set: any other set in the topic.
	for _, set := range snap.Candidates {
		if set.ID == recentSet.ID || mastered[set.ID] {
			continue
		}
		if set.Subject == topic {
			return recommend(set, fmt.Sprintf(
				"You did well on %s! Try another set in %s.",
				recentSet.Title, topic,
			)), true
		}
	}

	return r.defaultBeginnerSet(snap)
}

// defaultBeginnerSet picks the earliest-created unmastered set at
// Beginner/Easy (or unset) level, falling back to the earliest unmastered
// set of any level.
func (r *Recommender) defaultBeginnerSet(snap Snapshot) (Recommendation, bool) {
	mastered := snap.mastered()
	easyRanks := []int{r.rank(beginnerLevel), r.rank("Easy")}

	for _, set := range snap.Candidates {
		if mastered[set.ID] {
			continue
		}
		if set.Level == "" || levelKnown(set.Level, r.ladder) && rankIn(r.rank(set.Level), easyRanks) {
			rec := recommend(set, "Start your learning journey with this beginner-friendly set!")
			if set.Level == "" {
				rec.Difficulty = beginnerLevel
			}
			return rec, true
		}
	}

	for _, set := range snap.Candidates {
		if mastered[set.ID] {
			continue
		}
		return recommend(set, "Try this study set to get started!"), true
	}

	return Recommendation{}, false
}

func recommend(set StudySet, reason string) Recommendation {
	topic := set.Subject
	if topic == "" {
		topic = fallbackTopic
	}
	level := set.Level
	if level == "" {
		level = fallbackLevel
	}
	return Recommendation{
		SetID:      set.ID,
		Title:      set.Title,
		Topic:      topic,
		Difficulty: level,
		Reason:     reason,
	}
}

func levelIn(level string, names []string) bool {
	for _, n := range names {
		if n == level {
			return true
		}
	}
	return false
}

func rankIn(rank int, ranks []int) bool {
	for _, r := range ranks {
		if r == rank {
			return true
		}
	}
	return false
}

func levelKnown(level string, ladder []DifficultyLevel) bool {
	for _, dl := range ladder {
		if dl.Name == level {
			return true
		}
	}
	return false
}
