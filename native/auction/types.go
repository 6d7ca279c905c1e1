package auction

import (
	"fmt"
	"math/big"
)

// Status represents the lifecycle states of an auction. Transitions are
// monotone: an auction never returns to Active once settlement has started.
// Refunded is recoverable, the creator may still reclaim the custodied asset.
type Status uint8

const (
	StatusActive Status = iota
	StatusWaitFinalization
	StatusFinalized
	StatusRefunded
)

// Valid reports whether the status value is within the supported range.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusWaitFinalization, StatusFinalized, StatusRefunded:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusWaitFinalization:
		return "wait_finalization"
	case StatusFinalized:
		return "finalized"
	case StatusRefunded:
		return "refunded"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// AssetKind enumerates the closed set of auction subjects.
type AssetKind uint8

const (
	AssetReal AssetKind = iota
	AssetFungible
	AssetNonFungible
	AssetSemiFungible
)

// Valid reports whether the kind is a member of the closed variant set.
func (k AssetKind) Valid() bool {
	switch k {
	case AssetReal, AssetFungible, AssetNonFungible, AssetSemiFungible:
		return true
	default:
		return false
	}
}

func (k AssetKind) String() string {
	switch k {
	case AssetReal:
		return "real"
	case AssetFungible:
		return "fungible"
	case AssetNonFungible:
		return "non_fungible"
	case AssetSemiFungible:
		return "semi_fungible"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// RealAsset backs an auction subject with no custody: settlement is attested
// by the arbiter. The vote maps are keyed by principal and are cleared as a
// whole whenever the arbiter is replaced.
type RealAsset struct {
	Arbiter       [20]byte
	SwapVotes     map[[20]byte][20]byte
	FinalizeVotes map[[20]byte]bool
	RefundVotes   map[[20]byte]bool
}

// Clone returns a deep copy of the real-asset payload.
func (r *RealAsset) Clone() *RealAsset {
	if r == nil {
		return nil
	}
	clone := &RealAsset{
		Arbiter:       r.Arbiter,
		SwapVotes:     make(map[[20]byte][20]byte, len(r.SwapVotes)),
		FinalizeVotes: make(map[[20]byte]bool, len(r.FinalizeVotes)),
		RefundVotes:   make(map[[20]byte]bool, len(r.RefundVotes)),
	}
	for voter, candidate := range r.SwapVotes {
		clone.SwapVotes[voter] = candidate
	}
	for voter, ok := range r.FinalizeVotes {
		clone.FinalizeVotes[voter] = ok
	}
	for voter, ok := range r.RefundVotes {
		clone.RefundVotes[voter] = ok
	}
	return clone
}

// ResetVotes drops every recorded approval. Called when the arbiter is
// replaced so stale votes never carry over to the new arbiter.
func (r *RealAsset) ResetVotes() {
	if r == nil {
		return
	}
	r.SwapVotes = make(map[[20]byte][20]byte)
	r.FinalizeVotes = make(map[[20]byte]bool)
	r.RefundVotes = make(map[[20]byte]bool)
}

// FungibleAsset carries a custodied amount, net of the deposit fee. A zero
// token address means the amount is native value.
type FungibleAsset struct {
	Amount *big.Int
	Token  [20]byte
}

// Clone returns a deep copy of the fungible payload.
func (f *FungibleAsset) Clone() *FungibleAsset {
	if f == nil {
		return nil
	}
	clone := &FungibleAsset{Token: f.Token, Amount: big.NewInt(0)}
	if f.Amount != nil {
		clone.Amount = new(big.Int).Set(f.Amount)
	}
	return clone
}

// NonFungibleAsset identifies a single custodied token.
type NonFungibleAsset struct {
	TokenID uint64
	Token   [20]byte
}

// Clone returns a copy of the non-fungible payload.
func (n *NonFungibleAsset) Clone() *NonFungibleAsset {
	if n == nil {
		return nil
	}
	clone := *n
	return &clone
}

// SemiFungibleAsset identifies a custodied quantity of a single token id.
type SemiFungibleAsset struct {
	TokenID uint64
	Amount  *big.Int
	Token   [20]byte
}

// Clone returns a deep copy of the semi-fungible payload.
func (s *SemiFungibleAsset) Clone() *SemiFungibleAsset {
	if s == nil {
		return nil
	}
	clone := &SemiFungibleAsset{TokenID: s.TokenID, Token: s.Token, Amount: big.NewInt(0)}
	if s.Amount != nil {
		clone.Amount = new(big.Int).Set(s.Amount)
	}
	return clone
}

// Asset is a tagged union over the supported auction subjects. Exactly one
// payload pointer matching Kind is non-nil; the kind is fixed at creation.
type Asset struct {
	Kind         AssetKind
	Real         *RealAsset
	Fungible     *FungibleAsset
	NonFungible  *NonFungibleAsset
	SemiFungible *SemiFungibleAsset
}

// Clone returns a deep copy of the asset.
func (a Asset) Clone() Asset {
	return Asset{
		Kind:         a.Kind,
		Real:         a.Real.Clone(),
		Fungible:     a.Fungible.Clone(),
		NonFungible:  a.NonFungible.Clone(),
		SemiFungible: a.SemiFungible.Clone(),
	}
}

func (a Asset) validate() error {
	if !a.Kind.Valid() {
		return fmt.Errorf("auction: invalid asset kind: %d", a.Kind)
	}
	active := 0
	if a.Real != nil {
		active++
	}
	if a.Fungible != nil {
		active++
	}
	if a.NonFungible != nil {
		active++
	}
	if a.SemiFungible != nil {
		active++
	}
	if active != 1 {
		return fmt.Errorf("auction: asset must carry exactly one variant payload, got %d", active)
	}
	var ok bool
	switch a.Kind {
	case AssetReal:
		ok = a.Real != nil
	case AssetFungible:
		ok = a.Fungible != nil
	case AssetNonFungible:
		ok = a.NonFungible != nil
	case AssetSemiFungible:
		ok = a.SemiFungible != nil
	}
	if !ok {
		return fmt.Errorf("auction: asset payload does not match kind %s", a.Kind)
	}
	return nil
}

// Bid is a single entry in the per-auction bid ledger. Amount is net of the
// protocol fee. The withdrawn flag is the only mutable field and guards every
// payout touching the bid's escrowed value.
type Bid struct {
	ID        uint64
	Bidder    [20]byte
	Amount    *big.Int
	PlacedAt  int64
	Withdrawn bool
}

// Clone returns a deep copy of the bid.
func (b *Bid) Clone() *Bid {
	if b == nil {
		return nil
	}
	clone := &Bid{ID: b.ID, Bidder: b.Bidder, PlacedAt: b.PlacedAt, Withdrawn: b.Withdrawn, Amount: big.NewInt(0)}
	if b.Amount != nil {
		clone.Amount = new(big.Int).Set(b.Amount)
	}
	return clone
}

// Auction captures the stored state of a single auction. Shape is fixed at
// creation; bidding and settlement mutate only BestBidID, BidCount, Status
// and (for real assets) the vote maps.
type Auction struct {
	ID         uint64
	Title      string
	Creator    [20]byte
	StartPrice *big.Int
	BidStep    *big.Int
	EndTime    int64
	CreatedAt  int64
	BestBidID  uint64
	BidCount   uint64
	Status     Status
	Asset      Asset
}

// Clone returns a deep copy of the auction.
func (a *Auction) Clone() *Auction {
	if a == nil {
		return nil
	}
	clone := &Auction{
		ID:        a.ID,
		Title:     a.Title,
		Creator:   a.Creator,
		EndTime:   a.EndTime,
		CreatedAt: a.CreatedAt,
		BestBidID: a.BestBidID,
		BidCount:  a.BidCount,
		Status:    a.Status,
		Asset:     a.Asset.Clone(),
	}
	clone.StartPrice = big.NewInt(0)
	if a.StartPrice != nil {
		clone.StartPrice = new(big.Int).Set(a.StartPrice)
	}
	clone.BidStep = big.NewInt(0)
	if a.BidStep != nil {
		clone.BidStep = new(big.Int).Set(a.BidStep)
	}
	return clone
}

// SanitizeAuction validates and normalises the supplied auction, returning a
// cloned instance with non-nil amounts. The original value is not mutated.
func SanitizeAuction(a *Auction) (*Auction, error) {
	if a == nil {
		return nil, fmt.Errorf("auction: nil auction")
	}
	clone := a.Clone()
	if clone.ID == 0 {
		return nil, fmt.Errorf("auction: id must be positive")
	}
	if len(clone.Title) < titleMinBytes || len(clone.Title) > titleMaxBytes {
		return nil, fmt.Errorf("auction: title length out of range: %d", len(clone.Title))
	}
	if clone.StartPrice.Sign() <= 0 {
		return nil, fmt.Errorf("auction: start price must be positive")
	}
	if clone.BidStep.Sign() <= 0 {
		return nil, fmt.Errorf("auction: bid step must be positive")
	}
	if !clone.Status.Valid() {
		return nil, fmt.Errorf("auction: invalid status: %d", clone.Status)
	}
	if err := clone.Asset.validate(); err != nil {
		return nil, err
	}
	return clone, nil
}

// EscrowRecord is the per (depositor, auction) bookkeeping entry marking what
// was custodied and whether it has been released. The withdrawn flag makes
// the release path idempotent and is flipped before any external transfer.
type EscrowRecord struct {
	Kind      AssetKind
	Amount    *big.Int
	TokenID   uint64
	Withdrawn bool
}

// Clone returns a deep copy of the record.
func (r *EscrowRecord) Clone() *EscrowRecord {
	if r == nil {
		return nil
	}
	clone := &EscrowRecord{Kind: r.Kind, TokenID: r.TokenID, Withdrawn: r.Withdrawn, Amount: big.NewInt(0)}
	if r.Amount != nil {
		clone.Amount = new(big.Int).Set(r.Amount)
	}
	return clone
}

// arbiter returns the arbiter principal for real assets.
func (a *Auction) arbiter() ([20]byte, bool) {
	if a == nil || a.Asset.Kind != AssetReal || a.Asset.Real == nil {
		return [20]byte{}, false
	}
	return a.Asset.Real.Arbiter, true
}
