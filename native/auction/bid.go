package auction

import (
	"fmt"
	"math/big"

	"auctionhouse/native/common"
)

// PlaceBid appends a new bid to the auction's ledger and makes it the current
// best bid. The caller's attached value has the protocol fee deducted; the
// remaining net amount must meet the required minimum (start price for the
// first bid, previous best plus the bid step afterwards).
func (e *Engine) PlaceBid(auctionID uint64, caller [20]byte, value *big.Int) (*Bid, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	a, err := e.loadAuction(auctionID)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusActive {
		return nil, fmt.Errorf("auction: auction is not active")
	}
	if e.now() >= a.EndTime {
		return nil, fmt.Errorf("auction: auction has ended")
	}
	if caller == a.Creator {
		return nil, fmt.Errorf("auction: creator cannot bid")
	}
	if arb, ok := a.arbiter(); ok && caller == arb {
		return nil, fmt.Errorf("auction: arbiter cannot bid")
	}
	var best *Bid
	if a.BestBidID != 0 {
		best, _ = e.state.BidGet(a.ID, a.BestBidID)
		if best == nil {
			return nil, errBidNotFound
		}
		if caller == best.Bidder {
			return nil, fmt.Errorf("auction: caller already holds the best bid")
		}
	}
	if value == nil || value.Sign() <= 0 {
		return nil, fmt.Errorf("auction: invalid bid amount")
	}
	split := e.fees.Apply(value)
	required := cloneBigInt(a.StartPrice)
	if best != nil {
		required = new(big.Int).Add(best.Amount, a.BidStep)
	}
	if split.Net.Cmp(required) < 0 {
		return nil, fmt.Errorf("auction: invalid bid amount")
	}
	if err := e.transferNative(caller, e.state.AuctionVaultAddress(), value); err != nil {
		return nil, err
	}
	if err := e.state.FeePoolAdd(split.Fee); err != nil {
		return nil, err
	}
	bid := &Bid{
		ID:       a.BidCount + 1,
		Bidder:   caller,
		Amount:   split.Net,
		PlacedAt: e.now(),
	}
	if err := e.state.BidPut(a.ID, bid); err != nil {
		return nil, err
	}
	a.BidCount++
	a.BestBidID = bid.ID
	if err := e.storeAuction(a); err != nil {
		return nil, err
	}
	e.emit(NewBidPlacedEvent(a, bid))
	return bid.Clone(), nil
}

// TakeMyBid reclaims a losing bid's escrowed value. The current best bid is
// frozen until three days after the auction end so finalization or refund can
// still target it; once the grace window elapses even the best bid becomes
// reclaimable.
func (e *Engine) TakeMyBid(auctionID, bidID uint64, caller [20]byte) error {
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
	bid, ok := e.state.BidGet(a.ID, bidID)
	if !ok {
		return errBidNotFound
	}
	if caller != bid.Bidder {
		return fmt.Errorf("auction: caller is not the bid owner")
	}
	if bid.Withdrawn {
		return fmt.Errorf("auction: bid %d already paid out", bid.ID)
	}
	if bidID == a.BestBidID && e.now() <= a.EndTime+graceWindowSecs {
		return fmt.Errorf("auction: best bid is frozen during the settlement grace window")
	}
	if err := e.payoutBid(a, bid, caller); err != nil {
		return err
	}
	e.emit(NewBidWithdrawnEvent(a, bid))
	return nil
}
