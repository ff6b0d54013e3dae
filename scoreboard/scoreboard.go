// Package scoreboard derives per-contest standings from judged runs (C7),
// backed by a process-local read-through cache invalidated on the writes
// that can flip a (user, problem, is_passed) triple.
package scoreboard

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"codecourt/store"
)

// ProblemState is whether a user has an accepted submission for a problem.
type ProblemState struct {
	Slug   string
	Passed bool
}

// Standing is one row of a contest's scoreboard.
type Standing struct {
	UserID        int64
	NumSolved     int
	Penalty       int
	ProblemStates []ProblemState
}

// scoreboardStore is the narrow slice of *store.Store this package needs,
// satisfied implicitly, so tests can supply a fake without a database.
type scoreboardStore interface {
	JudgedSubmissionsForContest(ctx context.Context, contestID int64) ([]store.Run, error)
	GetProblem(ctx context.Context, id int64) (store.Problem, error)
}

// Aggregator computes and caches standings. The cache is a small
// mutex-guarded map — no cache library is used anywhere in the retrieval
// pack for this shape of problem (a single-process read-through cache
// keyed by one integer id), so a hand-rolled cache matches the teacher's
// plain-Go service-layer style rather than reaching for an external one.
type Aggregator struct {
	store scoreboardStore

	mu    sync.Mutex
	cache map[int64][]Standing
}

func New(s scoreboardStore) *Aggregator {
	return &Aggregator{store: s, cache: make(map[int64][]Standing)}
}

// Invalidate drops the cached standings for a contest. Called whenever a
// Run transitions to SUCCESSFUL/FAILED for that contest, or contest/problem
// membership changes.
func (a *Aggregator) Invalidate(contestID int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.cache, contestID)
}

// Scores returns the cached standings for contestID, computing and caching
// them on a miss.
func (a *Aggregator) Scores(ctx context.Context, contestID int64) ([]Standing, error) {
	a.mu.Lock()
	if cached, ok := a.cache[contestID]; ok {
		a.mu.Unlock()
		return cached, nil
	}
	a.mu.Unlock()

	standings, err := a.compute(ctx, contestID)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.cache[contestID] = standings
	a.mu.Unlock()
	return standings, nil
}

// compute implements §4.7: for each (user, problem), problem_states[slug]
// is true iff any judged submission by that user on that problem passed.
// penalty counts failed submissions preceding the first accepted one per
// solved problem; unsolved problems contribute zero penalty.
func (a *Aggregator) compute(ctx context.Context, contestID int64) ([]Standing, error) {
	runs, err := a.store.JudgedSubmissionsForContest(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("scoreboard: load judged submissions: %w", err)
	}

	type key struct {
		userID    int64
		problemID int64
	}
	perPair := make(map[key][]store.Run) // in submit_time order, per JudgedSubmissionsForContest's ORDER BY
	users := make(map[int64]bool)
	problemSlugs := make(map[int64]string)

	for _, r := range runs {
		k := key{r.UserID, r.ProblemID}
		perPair[k] = append(perPair[k], r)
		users[r.UserID] = true
		if _, ok := problemSlugs[r.ProblemID]; !ok {
			p, err := a.store.GetProblem(ctx, r.ProblemID)
			if err != nil {
				return nil, fmt.Errorf("scoreboard: load problem %d: %w", r.ProblemID, err)
			}
			problemSlugs[r.ProblemID] = p.Slug
		}
	}

	standings := make([]Standing, 0, len(users))
	for userID := range users {
		var solved int
		var penalty int
		var states []ProblemState
		for problemID, slug := range problemSlugs {
			k := key{userID, problemID}
			attempts, ok := perPair[k]
			if !ok {
				continue
			}
			passed := false
			failsBeforeAccept := 0
			for _, r := range attempts {
				if r.IsPassed != nil && *r.IsPassed {
					passed = true
					break
				}
				failsBeforeAccept++
			}
			states = append(states, ProblemState{Slug: slug, Passed: passed})
			if passed {
				solved++
				penalty += failsBeforeAccept
			}
		}
		standings = append(standings, Standing{UserID: userID, NumSolved: solved, Penalty: penalty, ProblemStates: states})
	}

	sort.Slice(standings, func(i, j int) bool {
		if standings[i].NumSolved != standings[j].NumSolved {
			return standings[i].NumSolved > standings[j].NumSolved
		}
		if standings[i].Penalty != standings[j].Penalty {
			return standings[i].Penalty < standings[j].Penalty
		}
		return standings[i].UserID < standings[j].UserID
	})
	return standings, nil
}
