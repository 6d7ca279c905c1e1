package auction

import (
	"fmt"
	"math/big"
)

// FungibleToken abstracts an external fungible token contract. Transfers are
// untrusted calls; the engine updates its own bookkeeping before invoking
// them.
type FungibleToken interface {
	// TransferFrom pulls amount from the owner using an allowance granted to
	// the operator. The token reports insufficient allowance as an error.
	TransferFrom(operator, from, to [20]byte, amount *big.Int) error
	// Transfer moves amount out of the from balance.
	Transfer(from, to [20]byte, amount *big.Int) error
}

// NonFungibleToken abstracts an external contract custodying unique tokens.
type NonFungibleToken interface {
	// Approved returns the address approved to move the given token.
	Approved(tokenID uint64) ([20]byte, error)
	TransferFrom(from, to [20]byte, tokenID uint64) error
}

// SemiFungibleToken abstracts an external contract custodying per-id balances.
type SemiFungibleToken interface {
	IsApprovedForAll(owner, operator [20]byte) (bool, error)
	SafeTransferFrom(from, to [20]byte, tokenID uint64, amount *big.Int) error
}

// depositAsset dispatches on the asset kind, takes custody of the offered
// asset and returns the variant payload recorded on the auction. Fungible
// deposits have the protocol fee deducted before the net amount is recorded;
// native-value fees accumulate in the fee pool.
func (e *Engine) depositAsset(auctionID uint64, creator [20]byte, value *big.Int, kind AssetKind, assetRef [20]byte, assetID uint64, assetAmount *big.Int, arbiter [20]byte) (Asset, error) {
	vault := e.state.AuctionVaultAddress()
	switch kind {
	case AssetReal:
		if value != nil && value.Sign() != 0 {
			return Asset{}, fmt.Errorf("auction: unexpected native value")
		}
		if arbiter == ([20]byte{}) {
			return Asset{}, fmt.Errorf("auction: arbiter must not be empty")
		}
		if arbiter == creator {
			return Asset{}, fmt.Errorf("auction: arbiter must not be the creator")
		}
		real := &RealAsset{Arbiter: arbiter}
		real.ResetVotes()
		return Asset{Kind: AssetReal, Real: real}, nil

	case AssetFungible:
		if assetAmount == nil || assetAmount.Sign() <= 0 {
			return Asset{}, fmt.Errorf("auction: asset amount must be positive")
		}
		if assetRef == ([20]byte{}) {
			// Native value: the attached value must match the declared amount
			// exactly.
			if value == nil || value.Cmp(assetAmount) != 0 {
				return Asset{}, fmt.Errorf("auction: invalid native value amount")
			}
			if err := e.transferNative(creator, vault, value); err != nil {
				return Asset{}, err
			}
			split := e.fees.Apply(assetAmount)
			if err := e.state.FeePoolAdd(split.Fee); err != nil {
				return Asset{}, err
			}
			if err := e.putDepositRecord(auctionID, creator, &EscrowRecord{Kind: kind, Amount: split.Net}); err != nil {
				return Asset{}, err
			}
			return Asset{Kind: AssetFungible, Fungible: &FungibleAsset{Amount: split.Net}}, nil
		}
		if value != nil && value.Sign() != 0 {
			return Asset{}, fmt.Errorf("auction: unexpected native value")
		}
		token, err := e.state.FungibleToken(assetRef)
		if err != nil {
			return Asset{}, err
		}
		split := e.fees.Apply(assetAmount)
		if err := e.putDepositRecord(auctionID, creator, &EscrowRecord{Kind: kind, Amount: split.Net}); err != nil {
			return Asset{}, err
		}
		if err := token.TransferFrom(vault, creator, vault, assetAmount); err != nil {
			return Asset{}, err
		}
		return Asset{Kind: AssetFungible, Fungible: &FungibleAsset{Amount: split.Net, Token: assetRef}}, nil

	case AssetNonFungible:
		if value != nil && value.Sign() != 0 {
			return Asset{}, fmt.Errorf("auction: unexpected native value")
		}
		if assetID == 0 {
			return Asset{}, fmt.Errorf("auction: token id must be positive")
		}
		token, err := e.state.NonFungibleToken(assetRef)
		if err != nil {
			return Asset{}, err
		}
		approved, err := token.Approved(assetID)
		if err != nil {
			return Asset{}, err
		}
		if approved != vault {
			return Asset{}, fmt.Errorf("auction: insufficient approval")
		}
		if err := e.putDepositRecord(auctionID, creator, &EscrowRecord{Kind: kind, TokenID: assetID}); err != nil {
			return Asset{}, err
		}
		if err := token.TransferFrom(creator, vault, assetID); err != nil {
			return Asset{}, err
		}
		return Asset{Kind: AssetNonFungible, NonFungible: &NonFungibleAsset{TokenID: assetID, Token: assetRef}}, nil

	case AssetSemiFungible:
		if value != nil && value.Sign() != 0 {
			return Asset{}, fmt.Errorf("auction: unexpected native value")
		}
		if assetID == 0 {
			return Asset{}, fmt.Errorf("auction: token id must be positive")
		}
		if assetAmount == nil || assetAmount.Sign() <= 0 {
			return Asset{}, fmt.Errorf("auction: asset amount must be positive")
		}
		token, err := e.state.SemiFungibleToken(assetRef)
		if err != nil {
			return Asset{}, err
		}
		approved, err := token.IsApprovedForAll(creator, vault)
		if err != nil {
			return Asset{}, err
		}
		if !approved {
			return Asset{}, fmt.Errorf("auction: insufficient approval")
		}
		if err := e.putDepositRecord(auctionID, creator, &EscrowRecord{Kind: kind, TokenID: assetID, Amount: assetAmount}); err != nil {
			return Asset{}, err
		}
		if err := token.SafeTransferFrom(creator, vault, assetID, assetAmount); err != nil {
			return Asset{}, err
		}
		return Asset{Kind: AssetSemiFungible, SemiFungible: &SemiFungibleAsset{TokenID: assetID, Amount: cloneBigInt(assetAmount), Token: assetRef}}, nil
	}
	return Asset{}, fmt.Errorf("auction: invalid asset kind: %d", kind)
}

func (e *Engine) putDepositRecord(auctionID uint64, depositor [20]byte, record *EscrowRecord) error {
	if record.Amount == nil {
		record.Amount = big.NewInt(0)
	}
	return e.state.EscrowRecordPut(auctionID, depositor, record)
}

// releaseAsset hands the custodied asset to the recipient. Real assets carry
// no custody and cannot be released through this path. The escrow record is
// flipped to withdrawn before the external transfer runs, so a re-entrant
// call observes the release as already done.
func (e *Engine) releaseAsset(a *Auction, recipient [20]byte) error {
	if a.Asset.Kind == AssetReal {
		return fmt.Errorf("auction: unsupported asset kind for release")
	}
	record, ok := e.state.EscrowRecordGet(a.ID, a.Creator)
	if !ok {
		return fmt.Errorf("auction: no escrow record for auction %d", a.ID)
	}
	if record.Withdrawn {
		return fmt.Errorf("auction: assets already withdrawn")
	}
	record.Withdrawn = true
	if err := e.state.EscrowRecordPut(a.ID, a.Creator, record); err != nil {
		return err
	}
	vault := e.state.AuctionVaultAddress()
	switch a.Asset.Kind {
	case AssetFungible:
		payload := a.Asset.Fungible
		if payload.Token == ([20]byte{}) {
			if err := e.transferNative(vault, recipient, payload.Amount); err != nil {
				return err
			}
		} else {
			token, err := e.state.FungibleToken(payload.Token)
			if err != nil {
				return err
			}
			if err := token.Transfer(vault, recipient, payload.Amount); err != nil {
				return err
			}
		}
	case AssetNonFungible:
		payload := a.Asset.NonFungible
		token, err := e.state.NonFungibleToken(payload.Token)
		if err != nil {
			return err
		}
		if err := token.TransferFrom(vault, recipient, payload.TokenID); err != nil {
			return err
		}
	case AssetSemiFungible:
		payload := a.Asset.SemiFungible
		token, err := e.state.SemiFungibleToken(payload.Token)
		if err != nil {
			return err
		}
		if err := token.SafeTransferFrom(vault, recipient, payload.TokenID, payload.Amount); err != nil {
			return err
		}
	default:
		return fmt.Errorf("auction: unsupported asset kind for release")
	}
	e.emit(NewWithdrawAssetsEvent(a, recipient, record.Amount, record.TokenID))
	return nil
}

// payoutBid releases a bid's escrowed native value to the recipient. The
// bid's withdrawn flag is the idempotency guard and is flipped before the
// transfer.
func (e *Engine) payoutBid(a *Auction, bid *Bid, recipient [20]byte) error {
	if bid.Withdrawn {
		return fmt.Errorf("auction: bid %d already paid out", bid.ID)
	}
	bid.Withdrawn = true
	if err := e.state.BidPut(a.ID, bid); err != nil {
		return err
	}
	return e.transferNative(e.state.AuctionVaultAddress(), recipient, bid.Amount)
}
