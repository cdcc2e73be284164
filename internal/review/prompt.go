package review

import (
	"context"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spigell/mentor-match/internal/matching"
)

const (
	PromptApprove  = "Approve"
	PromptReject   = "Reject (back to unassigned)"
	PromptReassign = "Reassign"
	PromptSkip     = "Skip"
	PromptBack     = "back"
)

// PromptDecider asks on the terminal with promptui.
type PromptDecider struct{}

func (PromptDecider) Decide(_ context.Context, r matching.MatchingResult, remaining map[string]int) (Choice, error) {
	label := fmt.Sprintf("%s: %s", r.MenteeID, r.ProposedAssignment.Comment)

	for {
		action := promptui.Select{
			Label: label,
			Items: []string{PromptApprove, PromptReject, PromptReassign, PromptSkip},
		}
		_, selected, err := action.Run()
		if err != nil {
			return Choice{}, err
		}

		switch selected {
		case PromptApprove:
			return Choice{Decision: matching.DecisionApproved}, nil
		case PromptReject:
			comment, err := askComment()
			if err != nil {
				return Choice{}, err
			}
			return Choice{Decision: matching.DecisionRejected, Comment: comment}, nil
		case PromptSkip:
			return Choice{}, ErrSkip
		case PromptReassign:
			mentor, err := chooseMentor(r, remaining)
			if err != nil {
				return Choice{}, err
			}
			if mentor == "" {
				continue
			}
			return Choice{Decision: matching.DecisionReassigned, MentorID: mentor}, nil
		}
	}
}

func chooseMentor(r matching.MatchingResult, remaining map[string]int) (string, error) {
	items := make([]string, 0, len(r.Recommendations)+1)
	for _, rec := range r.Recommendations {
		if rec.MentorID == *r.ProposedAssignment.MentorID || remaining[rec.MentorID] <= 0 {
			continue
		}
		items = append(items, fmt.Sprintf("%s rank %d / score %.2f / capacity %d",
			rec.MentorID, rec.Rank, rec.Score.TotalScore, remaining[rec.MentorID]))
	}

	mentorPrompt := promptui.Select{
		Label: "Choose a mentor and press ENTER",
		Items: append(items, PromptBack),
	}
	_, selected, err := mentorPrompt.Run()
	if err != nil {
		return "", err
	}
	if selected == PromptBack {
		return "", nil
	}
	return strings.Split(selected, " ")[0], nil
}

func askComment() (string, error) {
	p := promptui.Prompt{Label: "Comment (optional)"}
	comment, err := p.Run()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(comment), nil
}
