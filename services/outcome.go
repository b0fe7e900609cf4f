package services

type OutcomeStatus string

const (
	StatusApplied OutcomeStatus = "applied"
	StatusSkipped OutcomeStatus = "skipped"
)

type SkipReason string

const (
	ReasonNotOwner         SkipReason = "not_owner"
	ReasonSelfFollow       SkipReason = "self_follow"
	ReasonAlreadyFollowing SkipReason = "already_following"
	ReasonNotFollowing     SkipReason = "not_following"
)

// Outcome - результат мутации: применена или пропущена с причиной
type Outcome struct {
	Status OutcomeStatus `json:"status"`
	Reason SkipReason    `json:"reason,omitempty"`
}

func Applied() Outcome {
	return Outcome{Status: StatusApplied}
}

func Skipped(reason SkipReason) Outcome {
	return Outcome{Status: StatusSkipped, Reason: reason}
}

func (o Outcome) IsApplied() bool {
	return o.Status == StatusApplied
}
