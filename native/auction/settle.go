package auction

import (
	"fmt"

	"auctionhouse/native/common"
)

// isDealActor reports whether the caller may drive settlement: the creator,
// the current best bidder, or (for real assets) the arbiter.
func (e *Engine) isDealActor(a *Auction, best *Bid, caller [20]byte) bool {
	if caller == a.Creator {
		return true
	}
	if best != nil && caller == best.Bidder {
		return true
	}
	if arb, ok := a.arbiter(); ok && caller == arb {
		return true
	}
	return false
}

// RequestWithdraw drives an expired auction towards Finalized. Custodied
// assets settle through two independent idempotent payouts (price to the
// creator, asset to the best bidder); real assets settle through a 2-of-3
// finalize vote whose payout only executes on a creator call.
func (e *Engine) RequestWithdraw(auctionID uint64, caller [20]byte) error {
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
	if a.Status == StatusFinalized {
		return fmt.Errorf("auction: auction already finalized")
	}
	if e.now() <= a.EndTime {
		return fmt.Errorf("auction: auction has not ended")
	}
	var best *Bid
	if a.BestBidID != 0 {
		best, _ = e.state.BidGet(a.ID, a.BestBidID)
		if best == nil {
			return errBidNotFound
		}
	}
	if !e.isDealActor(a, best, caller) {
		return fmt.Errorf("auction: caller is not a deal actor")
	}

	// Zero interest: hand the custodied asset straight back to the creator.
	if best == nil {
		if a.Asset.Kind != AssetReal {
			if err := e.releaseAsset(a, a.Creator); err != nil {
				return err
			}
		}
		a.Status = StatusFinalized
		return e.storeAuction(a)
	}

	// The refund path already returned the winning bid; only the creator may
	// still close out the auction. Refunds exist only for real assets, so
	// there is nothing in custody to move.
	if a.Status == StatusRefunded {
		if caller != a.Creator {
			return fmt.Errorf("auction: only the creator may reclaim after refund")
		}
		if a.Asset.Kind != AssetReal {
			if err := e.releaseAsset(a, a.Creator); err != nil {
				return err
			}
		}
		a.Status = StatusFinalized
		return e.storeAuction(a)
	}

	if a.Status == StatusActive {
		a.Status = StatusWaitFinalization
	}

	if a.Asset.Kind != AssetReal {
		if caller == a.Creator {
			if err := e.payoutBid(a, best, a.Creator); err != nil {
				return err
			}
		} else {
			if err := e.releaseAsset(a, best.Bidder); err != nil {
				return err
			}
		}
		// Finalized only once both the price payment and the asset release
		// have completed; each side requires its own deal actor's call.
		record, ok := e.state.EscrowRecordGet(a.ID, a.Creator)
		paid, _ := e.state.BidGet(a.ID, best.ID)
		if ok && record.Withdrawn && paid != nil && paid.Withdrawn {
			a.Status = StatusFinalized
			if err := e.storeAuction(a); err != nil {
				return err
			}
			e.emit(NewAuctionFinalizedEvent(a, best))
			return nil
		}
		return e.storeAuction(a)
	}

	// Real asset: 2-of-3 finalize vote, payout only on the creator's call.
	if best.Withdrawn {
		return fmt.Errorf("auction: bid %d already paid out", best.ID)
	}
	real := a.Asset.Real
	real.FinalizeVotes[caller] = true
	if len(real.FinalizeVotes) >= 2 && caller == a.Creator {
		if err := e.payoutBid(a, best, a.Creator); err != nil {
			return err
		}
		a.Status = StatusFinalized
		if err := e.storeAuction(a); err != nil {
			return err
		}
		e.emit(NewAuctionFinalizedEvent(a, best))
		return nil
	}
	return e.storeAuction(a)
}

// ApproveRefund records a refund vote for a real-asset auction. Once two of
// creator, best bidder and arbiter have voted, the payout executes only on
// the best bidder's own call.
func (e *Engine) ApproveRefund(auctionID uint64, caller [20]byte) error {
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
		return fmt.Errorf("auction: refund approval requires a real asset")
	}
	if a.Status == StatusFinalized || a.Status == StatusRefunded {
		return fmt.Errorf("auction: auction already settled")
	}
	if e.now() <= a.EndTime {
		return fmt.Errorf("auction: auction has not ended")
	}
	if a.BestBidID == 0 {
		return fmt.Errorf("auction: auction has no bids")
	}
	best, ok := e.state.BidGet(a.ID, a.BestBidID)
	if !ok {
		return errBidNotFound
	}
	if best.Withdrawn {
		return fmt.Errorf("auction: bid %d already paid out", best.ID)
	}
	if !e.isDealActor(a, best, caller) {
		return fmt.Errorf("auction: caller is not a deal actor")
	}
	real := a.Asset.Real
	real.RefundVotes[caller] = true
	if len(real.RefundVotes) >= 2 && caller == best.Bidder {
		if err := e.payoutBid(a, best, best.Bidder); err != nil {
			return err
		}
		a.Status = StatusRefunded
		if err := e.storeAuction(a); err != nil {
			return err
		}
		e.emit(NewAuctionRefundedEvent(a, best))
		return nil
	}
	return e.storeAuction(a)
}
