package votes

import "github.com/MarcoPoloResearchLab/devflow/backend/internal/model"

// State is the vote a user currently holds on a target.
type State string

const (
	NoVote    State = "none"
	Upvoted   State = "upvoted"
	Downvoted State = "downvoted"
)

// Action is the store mutation that realizes a transition.
type Action int

const (
	ActionInsert Action = iota + 1
	ActionDelete
	ActionFlip
)

func (a Action) String() string {
	switch a {
	case ActionInsert:
		return "insert"
	case ActionDelete:
		return "delete"
	case ActionFlip:
		return "flip"
	default:
		return "unknown"
	}
}

// Transition describes the effect of a vote request on the current state.
type Transition struct {
	From   State
	To     State
	Action Action
}

// StateOf derives the state from the stored vote, nil meaning no vote.
func StateOf(vote *model.Vote) State {
	if vote == nil {
		return NoVote
	}
	return stateFor(vote.VoteType)
}

func stateFor(voteType model.VoteType) State {
	if voteType == model.VoteDown {
		return Downvoted
	}
	return Upvoted
}

// Next applies a requested vote type to the current state. Repeating the held vote removes it,
// the opposite vote flips it in place, and any vote from NoVote inserts a row.
func Next(current State, requested model.VoteType) Transition {
	target := stateFor(requested)
	switch {
	case current == NoVote:
		return Transition{From: current, To: target, Action: ActionInsert}
	case current == target:
		return Transition{From: current, To: NoVote, Action: ActionDelete}
	default:
		return Transition{From: current, To: target, Action: ActionFlip}
	}
}
