package auction

import (
	"fmt"

	"auctionhouse/native/common"
)

// VerifyNewArbiter records the caller's approval for a replacement arbiter on
// a real-asset auction. Once the creator and the current best bidder have
// approved the same candidate, the arbiter is replaced and every recorded
// vote (swap, finalize, refund) is cleared so nothing carries over.
func (e *Engine) VerifyNewArbiter(auctionID uint64, caller, newArbiter [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	a, err := e.loadAuction(auctionID)
	if err != nil {
		return err
	}
	if a.Asset.Kind != AssetReal {
		return fmt.Errorf("auction: arbiter replacement requires a real asset")
	}
	if e.now() <= a.EndTime {
		return fmt.Errorf("auction: auction has not ended")
	}
	real := a.Asset.Real
	if newArbiter == ([20]byte{}) {
		return fmt.Errorf("auction: new arbiter must not be empty")
	}
	if caller == real.Arbiter {
		return fmt.Errorf("auction: current arbiter cannot vote on replacement")
	}
	if newArbiter == real.Arbiter {
		return fmt.Errorf("auction: new arbiter must differ from the current arbiter")
	}
	var best *Bid
	if a.BestBidID != 0 {
		best, _ = e.state.BidGet(a.ID, a.BestBidID)
		if best == nil {
			return errBidNotFound
		}
	}
	if newArbiter == a.Creator || (best != nil && newArbiter == best.Bidder) {
		return fmt.Errorf("auction: new arbiter must not be a deal party")
	}
	if !e.isDealActor(a, best, caller) {
		return fmt.Errorf("auction: caller is not a deal actor")
	}
	real.SwapVotes[caller] = newArbiter

	agreed := real.SwapVotes[a.Creator] == newArbiter &&
		best != nil && real.SwapVotes[best.Bidder] == newArbiter
	if agreed {
		real.Arbiter = newArbiter
		real.ResetVotes()
		if err := e.storeAuction(a); err != nil {
			return err
		}
		e.emit(NewArbiterSetEvent(a, newArbiter))
		return nil
	}
	if err := e.storeAuction(a); err != nil {
		return err
	}
	e.emit(NewArbiterRequestEvent(a, caller, newArbiter))
	return nil
}
