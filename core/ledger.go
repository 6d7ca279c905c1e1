package core

import (
	"math/big"

	"auctionhouse/core/events"
	"auctionhouse/core/state"
	"auctionhouse/native/assessment"
	"auctionhouse/native/auction"
	"auctionhouse/native/fees"
	"auctionhouse/observability"
)

// Ledger is the transactional facade over the engines. Every public operation
// runs inside a state snapshot: on any failure all mutations are reverted, so
// callers observe strictly all-or-nothing semantics.
type Ledger struct {
	state       *state.Manager
	auctions    *auction.Engine
	assessments *assessment.Engine
	metrics     *observability.EngineMetrics
}

// NewLedger wires the state manager and engines for the supplied protocol
// owner and fee policy.
func NewLedger(owner [20]byte, policy fees.Policy) *Ledger {
	manager := state.NewManager()

	auctionEngine := auction.NewEngine()
	auctionEngine.SetState(manager)
	auctionEngine.SetOwner(owner)
	auctionEngine.SetFeePolicy(policy)
	auctionEngine.SetPauses(manager)

	registry := assessment.NewEngine()
	registry.SetState(manager)
	registry.SetPauses(manager)

	return &Ledger{
		state:       manager,
		auctions:    auctionEngine,
		assessments: registry,
		metrics:     observability.Metrics(),
	}
}

// State exposes the underlying manager for deployment wiring (seeding
// balances, registering token contracts, pausing modules).
func (l *Ledger) State() *state.Manager { return l.state }

// SetEmitter configures the event emitter shared by both engines.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	l.auctions.SetEmitter(emitter)
	l.assessments.SetEmitter(emitter)
}

// SetNowFunc overrides the time source for both engines.
func (l *Ledger) SetNowFunc(now func() int64) {
	l.auctions.SetNowFunc(now)
	l.assessments.SetNowFunc(now)
}

func (l *Ledger) withSnapshot(fn func() error) error {
	snapshot := l.state.Snapshot()
	if err := fn(); err != nil {
		l.state.RevertToSnapshot(snapshot)
		return err
	}
	l.state.DiscardSnapshot(snapshot)
	return nil
}

// CreateAuction creates a new auction and takes custody of the offered asset.
func (l *Ledger) CreateAuction(caller [20]byte, value *big.Int, title string, kind auction.AssetKind, startPrice, bidStep *big.Int, endTime int64, assetRef [20]byte, assetID uint64, assetAmount *big.Int, arbiter [20]byte) (*auction.Auction, error) {
	var created *auction.Auction
	err := l.withSnapshot(func() error {
		var err error
		created, err = l.auctions.CreateAuction(caller, value, title, kind, startPrice, bidStep, endTime, assetRef, assetID, assetAmount, arbiter)
		return err
	})
	l.metrics.ObserveOperation("createAuction", err)
	if err != nil {
		return nil, err
	}
	l.metrics.AuctionCreated()
	return created, nil
}

// PlaceBid appends a bid to the auction's ledger.
func (l *Ledger) PlaceBid(auctionID uint64, caller [20]byte, value *big.Int) (*auction.Bid, error) {
	var bid *auction.Bid
	err := l.withSnapshot(func() error {
		var err error
		bid, err = l.auctions.PlaceBid(auctionID, caller, value)
		return err
	})
	l.metrics.ObserveOperation("placeBid", err)
	if err != nil {
		return nil, err
	}
	l.metrics.BidPlaced()
	return bid, nil
}

// TakeMyBid reclaims a non-frozen bid.
func (l *Ledger) TakeMyBid(auctionID, bidID uint64, caller [20]byte) error {
	err := l.withSnapshot(func() error {
		return l.auctions.TakeMyBid(auctionID, bidID, caller)
	})
	l.metrics.ObserveOperation("takeMyBid", err)
	return err
}

// RequestWithdraw drives finalization or the post-refund reclaim.
func (l *Ledger) RequestWithdraw(auctionID uint64, caller [20]byte) error {
	err := l.withSnapshot(func() error {
		return l.auctions.RequestWithdraw(auctionID, caller)
	})
	l.metrics.ObserveOperation("requestWithdraw", err)
	if err == nil {
		if view, viewErr := l.auctions.GetAuction(auctionID); viewErr == nil && view.Status == auction.StatusFinalized {
			l.metrics.Settlement("finalized")
		}
	}
	return err
}

// ApproveRefund records a refund vote and pays out at consensus.
func (l *Ledger) ApproveRefund(auctionID uint64, caller [20]byte) error {
	err := l.withSnapshot(func() error {
		return l.auctions.ApproveRefund(auctionID, caller)
	})
	l.metrics.ObserveOperation("approveRefund", err)
	if err == nil {
		if view, viewErr := l.auctions.GetAuction(auctionID); viewErr == nil && view.Status == auction.StatusRefunded {
			l.metrics.Settlement("refunded")
		}
	}
	return err
}

// VerifyNewArbiter records an arbiter replacement vote.
func (l *Ledger) VerifyNewArbiter(auctionID uint64, caller, newArbiter [20]byte) error {
	err := l.withSnapshot(func() error {
		return l.auctions.VerifyNewArbiter(auctionID, caller, newArbiter)
	})
	l.metrics.ObserveOperation("verifyNewArbiter", err)
	return err
}

// WithdrawFees drains the fee pool to the protocol owner.
func (l *Ledger) WithdrawFees(caller [20]byte) (*big.Int, error) {
	var drained *big.Int
	err := l.withSnapshot(func() error {
		var err error
		drained, err = l.auctions.WithdrawFees(caller)
		return err
	})
	l.metrics.ObserveOperation("withdrawFees", err)
	if err != nil {
		return nil, err
	}
	l.metrics.FeesWithdrawn()
	return drained, nil
}

// GetAuction returns the auction read view.
func (l *Ledger) GetAuction(id uint64) (*auction.AuctionView, error) {
	return l.auctions.GetAuction(id)
}

// GetBids returns the bid ledger read view.
func (l *Ledger) GetBids(id uint64) ([]*auction.BidView, error) {
	return l.auctions.GetBids(id)
}

// AuctionCount returns the number of auctions ever created.
func (l *Ledger) AuctionCount() uint64 { return l.auctions.AuctionCount() }

// CreateProject registers an assessment project.
func (l *Ledger) CreateProject(caller, verifier [20]byte, title string) (*assessment.Project, error) {
	var project *assessment.Project
	err := l.withSnapshot(func() error {
		var err error
		project, err = l.assessments.CreateProject(caller, verifier, title)
		return err
	})
	l.metrics.ObserveOperation("createProject", err)
	if err != nil {
		return nil, err
	}
	return project, nil
}

// SubmitTask stores a hashed task submission.
func (l *Ledger) SubmitTask(projectID uint64, caller [20]byte, payload []byte) (*assessment.Submission, error) {
	var submission *assessment.Submission
	err := l.withSnapshot(func() error {
		var err error
		submission, err = l.assessments.SubmitTask(projectID, caller, payload)
		return err
	})
	l.metrics.ObserveOperation("submitTask", err)
	if err != nil {
		return nil, err
	}
	return submission, nil
}

// Review records the verifier's decision on a submission.
func (l *Ledger) Review(submissionID uint64, caller [20]byte, accept bool) error {
	err := l.withSnapshot(func() error {
		return l.assessments.Review(submissionID, caller, accept)
	})
	l.metrics.ObserveOperation("review", err)
	return err
}

// GetProject returns the stored project.
func (l *Ledger) GetProject(id uint64) (*assessment.Project, error) {
	return l.assessments.GetProject(id)
}

// GetSubmission returns the stored submission.
func (l *Ledger) GetSubmission(id uint64) (*assessment.Submission, error) {
	return l.assessments.GetSubmission(id)
}
