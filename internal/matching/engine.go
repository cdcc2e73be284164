package matching

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spigell/mentor-match/internal/assign"
	"github.com/spigell/mentor-match/internal/cohort"
	"github.com/spigell/mentor-match/internal/embedding"
	"github.com/spigell/mentor-match/internal/features"
	"github.com/spigell/mentor-match/internal/filtering"
	"github.com/spigell/mentor-match/internal/logger"
	"github.com/spigell/mentor-match/internal/model"
	"github.com/spigell/mentor-match/internal/ranking"
	"github.com/spigell/mentor-match/internal/rules"
	"github.com/spigell/mentor-match/internal/scoring"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 8

// Engine scores every feasible pair of a cohort and ranks or assigns mentors.
type Engine struct {
	provider embedding.Provider
	logger   *zap.Logger

	// Concurrency bounds the number of pairs evaluated at once.
	Concurrency int
	Now         func() time.Time
}

// NewEngine creates an engine. provider may be nil, semantic similarity is then lexical.
func NewEngine(provider embedding.Provider, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		provider:    provider,
		logger:      logger,
		Concurrency: defaultConcurrency,
		Now:         time.Now,
	}
}

type evaluation struct {
	pair  cohort.Pair
	score scoring.MatchScore
	err   error
}

// Run executes one matching run. A cancelled run returns the context error and no output.
func (e *Engine) Run(ctx context.Context, c *cohort.Cohort, m *model.MatchingModel, mode Mode) (*MatchingOutput, error) {
	if c == nil || m == nil {
		return nil, errors.New("cohort and matching model are required")
	}
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	if err := m.RequireActive(); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	snapshot := m.Clone()
	orderedRules := snapshot.SortedRules()
	log := logger.WithRunFields(e.logger, c.ID, snapshot.Version, string(mode))

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cohort: %w", err)
	}
	c = c.Clone()
	c.Normalize()
	mentors, mentees := c.Mentors, c.Mentees

	out := &MatchingOutput{
		CohortID: c.ID,
		Mode:     mode,
		Model:    snapshot,
		Stats: Stats{
			MenteesTotal:   len(mentees),
			MentorsTotal:   len(mentors),
			PairsEvaluated: len(mentees) * len(mentors),
		},
	}

	pairs := make([]cohort.Pair, 0, out.Stats.PairsEvaluated)
	for _, mentee := range mentees {
		for _, mentor := range mentors {
			pairs = append(pairs, cohort.Pair{Mentor: mentor, Mentee: mentee})
		}
	}

	log.Info("matching started",
		zap.Int("mentees", len(mentees)),
		zap.Int("mentors", len(mentors)),
		zap.Int("rules", len(orderedRules)),
	)

	feasible, dropped, err := filtering.Run(ctx, &snapshot.Filters, log, filtering.Default(snapshot.Filters), pairs)
	if err != nil {
		return nil, fmt.Errorf("filter pairs: %w", err)
	}

	vectors, warning, err := e.embed(ctx, log, feasible)
	if err != nil {
		return nil, err
	}
	if warning != "" {
		out.Warnings = append(out.Warnings, warning)
	}

	evaluations := make([]evaluation, len(feasible))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(e.Concurrency, 1))
	for i, p := range feasible {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			score, err := evaluatePair(p, snapshot, orderedRules, vectors)
			evaluations[i] = evaluation{pair: p, score: score, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	infeasible := make(map[string][]Infeasible, len(mentees))
	for _, d := range dropped {
		infeasible[d.MenteeID] = append(infeasible[d.MenteeID], Infeasible{MentorID: d.MentorID, Stage: d.Filter, Reason: d.Reason})
	}

	candidates := make(map[string][]ranking.Candidate, len(mentees))
	for _, ev := range evaluations {
		menteeID, mentorID := ev.pair.Mentee.ID, ev.pair.Mentor.ID

		if ev.err != nil {
			out.Stats.EvaluationErrors++
			infeasible[menteeID] = append(infeasible[menteeID], Infeasible{MentorID: mentorID, Stage: StageError, Reason: ev.err.Error()})
			log.Warn("pair evaluation failed",
				zap.String("mentee_id", menteeID),
				zap.String("mentor_id", mentorID),
				zap.Error(ev.err),
			)
			continue
		}

		out.Stats.AfterFilters++
		if !ev.score.Eligible {
			out.Stats.RuleExcluded++
			infeasible[menteeID] = append(infeasible[menteeID], Infeasible{MentorID: mentorID, Stage: StageRules, Reason: exclusionReason(ev.score)})
			continue
		}

		candidates[menteeID] = append(candidates[menteeID], ranking.Candidate{
			MentorID:          mentorID,
			CapacityRemaining: ev.pair.Mentor.CapacityRemaining,
			Score:             ev.score,
		})
	}

	out.Results = make([]MatchingResult, 0, len(mentees))
	entries := make([]assign.Entry, 0, len(mentees))
	for _, mentee := range mentees {
		recs := ranking.Top(candidates[mentee.ID], snapshot.TopN)
		if recs == nil {
			recs = []ranking.Recommendation{}
		}
		out.Results = append(out.Results, MatchingResult{
			MenteeID:        mentee.ID,
			Recommendations: recs,
			Infeasible:      infeasible[mentee.ID],
		})
		entries = append(entries, assign.Entry{MenteeID: mentee.ID, Recommendations: recs})
	}

	if mode == ModeBatch {
		assigned, summary := assign.New(c.Capacities(), log).Run(entries)
		for i := range out.Results {
			p := assigned[out.Results[i].MenteeID]
			out.Results[i].ProposedAssignment = &p
		}
		out.Stats.Assigned = summary.Assigned
		out.Stats.Unassigned = summary.Unassigned
		out.Stats.NeedsApproval = summary.NeedsApproval
	} else {
		out.Stats.Unassigned = len(mentees)
	}

	out.Timestamp = e.Now().UTC()

	log.Info("matching finished",
		zap.Int("pairs_evaluated", out.Stats.PairsEvaluated),
		zap.Int("after_filters", out.Stats.AfterFilters),
		zap.Int("rule_excluded", out.Stats.RuleExcluded),
		zap.Int("evaluation_errors", out.Stats.EvaluationErrors),
		zap.Int("assigned", out.Stats.Assigned),
		zap.Int("needs_approval", out.Stats.NeedsApproval),
	)

	return out, nil
}

// evaluatePair runs extraction, rules and scoring for one pair. Panics become errors.
func evaluatePair(p cohort.Pair, m *model.MatchingModel, ordered []model.MatchingRule, vectors map[string][]float32) (score scoring.MatchScore, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while evaluating pair: %v", r)
		}
	}()

	var v *features.Vectors
	if vectors != nil {
		v = &features.Vectors{
			Mentee: vectors[p.Mentee.Goals],
			Mentor: vectors[p.Mentor.OfferText()],
		}
	}

	extracted := features.Extract(p, m, v)

	outcome, err := rules.Evaluate(rules.BuildAttributes(p), ordered)
	if err != nil {
		return scoring.MatchScore{}, err
	}

	return scoring.Score(scoring.Input{
		Pair:     p,
		Features: extracted,
		Rules:    outcome,
		Model:    m,
	}), nil
}

// embed computes vectors for every distinct text of the feasible pairs in one batch call.
// A provider failure is not an error: it yields no vectors and a warning.
func (e *Engine) embed(ctx context.Context, log *zap.Logger, pairs []cohort.Pair) (map[string][]float32, string, error) {
	if e.provider == nil || len(pairs) == 0 {
		return nil, "", nil
	}

	seen := make(map[string]struct{})
	var texts []string
	add := func(text string) {
		if strings.TrimSpace(text) == "" {
			return
		}
		if _, ok := seen[text]; ok {
			return
		}
		seen[text] = struct{}{}
		texts = append(texts, text)
	}
	for _, p := range pairs {
		add(p.Mentee.Goals)
		add(p.Mentor.OfferText())
	}
	if len(texts) == 0 {
		return nil, "", nil
	}

	vecs, err := e.provider.Embed(ctx, texts)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, "", ctxErr
		}
		log.Warn("embedding provider failed, using lexical similarity", zap.Error(err))
		return nil, "embedding provider unavailable, semantic similarity estimated lexically", nil
	}
	if len(vecs) != len(texts) {
		log.Warn("embedding provider returned wrong number of vectors",
			zap.Int("expected", len(texts)),
			zap.Int("got", len(vecs)),
		)
		return nil, "embedding provider returned incomplete results, semantic similarity estimated lexically", nil
	}

	vectors := make(map[string][]float32, len(texts))
	for i, text := range texts {
		vectors[text] = vecs[i]
	}
	log.Debug("embeddings computed", zap.Int("texts", len(texts)))

	return vectors, "", nil
}

func exclusionReason(s scoring.MatchScore) string {
	for _, v := range s.Violations {
		if v.Severity == rules.SeverityError {
			return v.Message
		}
	}
	return "excluded by rule"
}
