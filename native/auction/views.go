package auction

import (
	"math/big"
)

// AssetView is the externally visible projection of an asset. For real assets
// only the current arbiter is exposed; the per-address vote maps never leave
// the engine.
type AssetView struct {
	Kind    AssetKind
	Arbiter [20]byte
	Token   [20]byte
	TokenID uint64
	Amount  *big.Int
}

// BidView is the externally visible projection of a ledger entry.
type BidView struct {
	ID        uint64
	Bidder    [20]byte
	Amount    *big.Int
	PlacedAt  int64
	Withdrawn bool
}

// AuctionView is the externally visible projection of an auction.
type AuctionView struct {
	ID         uint64
	Title      string
	Creator    [20]byte
	StartPrice *big.Int
	BidStep    *big.Int
	EndTime    int64
	Status     Status
	BidCount   uint64
	BestBid    *BidView
	Asset      AssetView
}

func newAssetView(asset Asset) AssetView {
	view := AssetView{Kind: asset.Kind, Amount: big.NewInt(0)}
	switch asset.Kind {
	case AssetReal:
		if asset.Real != nil {
			view.Arbiter = asset.Real.Arbiter
		}
	case AssetFungible:
		if asset.Fungible != nil {
			view.Token = asset.Fungible.Token
			view.Amount = cloneBigInt(asset.Fungible.Amount)
		}
	case AssetNonFungible:
		if asset.NonFungible != nil {
			view.Token = asset.NonFungible.Token
			view.TokenID = asset.NonFungible.TokenID
		}
	case AssetSemiFungible:
		if asset.SemiFungible != nil {
			view.Token = asset.SemiFungible.Token
			view.TokenID = asset.SemiFungible.TokenID
			view.Amount = cloneBigInt(asset.SemiFungible.Amount)
		}
	}
	return view
}

func newBidView(bid *Bid) *BidView {
	if bid == nil {
		return nil
	}
	return &BidView{
		ID:        bid.ID,
		Bidder:    bid.Bidder,
		Amount:    cloneBigInt(bid.Amount),
		PlacedAt:  bid.PlacedAt,
		Withdrawn: bid.Withdrawn,
	}
}

// GetAuction returns the read view for the given auction id.
func (e *Engine) GetAuction(id uint64) (*AuctionView, error) {
	a, err := e.loadAuction(id)
	if err != nil {
		return nil, err
	}
	view := &AuctionView{
		ID:         a.ID,
		Title:      a.Title,
		Creator:    a.Creator,
		StartPrice: cloneBigInt(a.StartPrice),
		BidStep:    cloneBigInt(a.BidStep),
		EndTime:    a.EndTime,
		Status:     a.Status,
		BidCount:   a.BidCount,
		Asset:      newAssetView(a.Asset),
	}
	if a.BestBidID != 0 {
		if best, ok := e.state.BidGet(a.ID, a.BestBidID); ok {
			view.BestBid = newBidView(best)
		}
	}
	return view, nil
}

// GetBids returns the full bid ledger for the given auction in placement
// order.
func (e *Engine) GetBids(id uint64) ([]*BidView, error) {
	a, err := e.loadAuction(id)
	if err != nil {
		return nil, err
	}
	bids, err := e.state.BidList(a.ID)
	if err != nil {
		return nil, err
	}
	views := make([]*BidView, 0, len(bids))
	for _, bid := range bids {
		views = append(views, newBidView(bid))
	}
	return views, nil
}

// AuctionCount returns the number of auctions ever created.
func (e *Engine) AuctionCount() uint64 {
	if e == nil || e.state == nil {
		return 0
	}
	return e.state.AuctionCount()
}
