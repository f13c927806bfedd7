package screening

// ScoreBoard is an immutable snapshot of one scoring round.
type ScoreBoard struct {
	scores []ScoredCandidate
}

// NewScoreBoard copies scores into a new board.
func NewScoreBoard(scores []ScoredCandidate) ScoreBoard {
	return ScoreBoard{scores: append([]ScoredCandidate(nil), scores...)}
}

// Scores returns a copy of the board entries in round order.
func (b ScoreBoard) Scores() []ScoredCandidate {
	return append([]ScoredCandidate(nil), b.scores...)
}

// Len returns the number of scored candidates.
func (b ScoreBoard) Len() int { return len(b.scores) }

// Filter returns every entry with a score of at least cutoff, in round order.
func (b ScoreBoard) Filter(cutoff float64) []ScoredCandidate {
	passed := make([]ScoredCandidate, 0, len(b.scores))
	for _, s := range b.scores {
		if s.Score >= cutoff {
			passed = append(passed, s)
		}
	}
	return passed
}
