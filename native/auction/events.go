package auction

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"auctionhouse/core/types"
)

const (
	EventTypeAuctionCreated   = "auction.created"
	EventTypeBidPlaced        = "auction.bid_placed"
	EventTypeBidWithdrawn     = "auction.bid_withdrawn"
	EventTypeAuctionFinalized = "auction.finalized"
	EventTypeAuctionRefunded  = "auction.refunded"
	EventTypeArbiterSet       = "auction.arbiter_set"
	EventTypeArbiterRequest   = "auction.arbiter_requested"
	EventTypeWithdrawAssets   = "auction.assets_withdrawn"
)

// NewAuctionCreatedEvent returns the canonical payload emitted when a new
// auction becomes queryable.
func NewAuctionCreatedEvent(a *Auction) *types.Event {
	attrs := baseAttrs(a)
	attrs["title"] = a.Title
	attrs["kind"] = a.Asset.Kind.String()
	attrs["endTime"] = strconv.FormatInt(a.EndTime, 10)
	return &types.Event{Type: EventTypeAuctionCreated, Attributes: attrs}
}

// NewBidPlacedEvent returns the payload emitted when a bid becomes the new
// best bid. The amount attribute is the recorded net amount.
func NewBidPlacedEvent(a *Auction, bid *Bid) *types.Event {
	attrs := baseAttrs(a)
	addBidAttrs(attrs, bid)
	return &types.Event{Type: EventTypeBidPlaced, Attributes: attrs}
}

// NewBidWithdrawnEvent returns the payload emitted when a bidder reclaims an
// escrowed bid.
func NewBidWithdrawnEvent(a *Auction, bid *Bid) *types.Event {
	attrs := baseAttrs(a)
	addBidAttrs(attrs, bid)
	return &types.Event{Type: EventTypeBidWithdrawn, Attributes: attrs}
}

// NewAuctionFinalizedEvent returns the payload emitted exactly once when an
// auction reaches Finalized with a winner.
func NewAuctionFinalizedEvent(a *Auction, best *Bid) *types.Event {
	attrs := baseAttrs(a)
	attrs["winner"] = hex.EncodeToString(best.Bidder[:])
	attrs["price"] = cloneBigInt(best.Amount).String()
	return &types.Event{Type: EventTypeAuctionFinalized, Attributes: attrs}
}

// NewAuctionRefundedEvent returns the payload emitted when the winning bid is
// returned to the best bidder through the refund consensus.
func NewAuctionRefundedEvent(a *Auction, best *Bid) *types.Event {
	attrs := baseAttrs(a)
	addBidAttrs(attrs, best)
	return &types.Event{Type: EventTypeAuctionRefunded, Attributes: attrs}
}

// NewArbiterSetEvent returns the payload emitted when a replacement arbiter
// has been jointly approved.
func NewArbiterSetEvent(a *Auction, arbiter [20]byte) *types.Event {
	attrs := baseAttrs(a)
	attrs["arbiter"] = hex.EncodeToString(arbiter[:])
	return &types.Event{Type: EventTypeArbiterSet, Attributes: attrs}
}

// NewArbiterRequestEvent returns the payload emitted when a swap vote is
// recorded without reaching joint approval.
func NewArbiterRequestEvent(a *Auction, voter, candidate [20]byte) *types.Event {
	attrs := baseAttrs(a)
	attrs["voter"] = hex.EncodeToString(voter[:])
	attrs["candidate"] = hex.EncodeToString(candidate[:])
	return &types.Event{Type: EventTypeArbiterRequest, Attributes: attrs}
}

// NewWithdrawAssetsEvent returns the payload emitted when custodied assets
// leave the vault.
func NewWithdrawAssetsEvent(a *Auction, recipient [20]byte, amount *big.Int, tokenID uint64) *types.Event {
	attrs := baseAttrs(a)
	attrs["recipient"] = hex.EncodeToString(recipient[:])
	attrs["amount"] = cloneBigInt(amount).String()
	attrs["tokenId"] = strconv.FormatUint(tokenID, 10)
	return &types.Event{Type: EventTypeWithdrawAssets, Attributes: attrs}
}

func baseAttrs(a *Auction) map[string]string {
	attrs := make(map[string]string)
	if a == nil {
		return attrs
	}
	attrs["id"] = strconv.FormatUint(a.ID, 10)
	attrs["creator"] = hex.EncodeToString(a.Creator[:])
	return attrs
}

func addBidAttrs(attrs map[string]string, bid *Bid) {
	if bid == nil {
		return
	}
	attrs["bidId"] = strconv.FormatUint(bid.ID, 10)
	attrs["bidder"] = hex.EncodeToString(bid.Bidder[:])
	attrs["amount"] = cloneBigInt(bid.Amount).String()
}
