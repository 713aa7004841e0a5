package unitofwork

// Outcome is how a transaction ended.
type Outcome string

const (
	OutcomeCommitted    Outcome = "committed"
	OutcomeRolledBack   Outcome = "rolled_back"
	OutcomeCommitFailed Outcome = "commit_failed"
)

// cleanup stages reported to Observer.CleanupFailed.
const (
	StageClose        = "close"
	StagePreRollback  = "pre_rollback"
	StageRollback     = "rollback"
	StagePostRollback = "post_rollback"
)

// Observer receives lifecycle events, typically to feed metrics.
// implementations must be safe for concurrent use.
type Observer interface {
	SessionOpened()
	SessionClosed()
	TransactionFinished(outcome Outcome)
	LifecycleViolation(code string)
	CleanupFailed(stage string)
}

type nopObserver struct{}

func (nopObserver) SessionOpened()              {}
func (nopObserver) SessionClosed()              {}
func (nopObserver) TransactionFinished(Outcome) {}
func (nopObserver) LifecycleViolation(string)   {}
func (nopObserver) CleanupFailed(string)        {}
