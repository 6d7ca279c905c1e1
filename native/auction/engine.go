package auction

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"auctionhouse/core/events"
	"auctionhouse/core/types"
	"auctionhouse/native/common"
	"auctionhouse/native/fees"
)

const (
	moduleName = "auction"

	titleMinBytes = 1
	titleMaxBytes = 15

	// graceWindowSecs freezes the current best bid for three days after the
	// auction end so settlement can still target it.
	graceWindowSecs int64 = 3 * 24 * 60 * 60
)

var (
	errNilState        = errors.New("auction engine: state not configured")
	errAuctionNotFound = errors.New("auction engine: auction not found")
	errBidNotFound     = errors.New("auction engine: bid not found")
)

type engineState interface {
	AuctionPut(*Auction) error
	AuctionGet(id uint64) (*Auction, bool)
	AuctionNextID() (uint64, error)
	AuctionCount() uint64
	BidPut(auctionID uint64, bid *Bid) error
	BidGet(auctionID, bidID uint64) (*Bid, bool)
	BidList(auctionID uint64) ([]*Bid, error)
	EscrowRecordPut(auctionID uint64, depositor [20]byte, record *EscrowRecord) error
	EscrowRecordGet(auctionID uint64, depositor [20]byte) (*EscrowRecord, bool)
	FeePoolAdd(amount *big.Int) error
	FeePoolBalance() (*big.Int, error)
	FeePoolReset() error
	AuctionVaultAddress() [20]byte
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
	FungibleToken(addr [20]byte) (FungibleToken, error)
	NonFungibleToken(addr [20]byte) (NonFungibleToken, error)
	SemiFungibleToken(addr [20]byte) (SemiFungibleToken, error)
}

type auctionEvent struct {
	evt *types.Event
}

func (e auctionEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e auctionEvent) Event() *types.Event { return e.evt }

// Engine wires the auction business logic with external state and event
// emitters. All amounts are handled net of the configured protocol fee; the
// gross value always moves into the module vault first.
type Engine struct {
	state  engineState
	emitter events.Emitter
	fees    fees.Policy
	owner   [20]byte
	nowFn   func() int64
	pauses  common.PauseView
}

// NewEngine creates an auction engine with a no-op emitter. Callers override
// the emitter via SetEmitter and must configure state, owner and fee policy
// before use.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetOwner configures the protocol owner entitled to drain the fee pool.
func (e *Engine) SetOwner(addr [20]byte) { e.owner = addr }

// SetFeePolicy configures the immutable fee percentage applied to deposits
// and bids.
func (e *Engine) SetFeePolicy(policy fees.Policy) { e.fees = policy }

// SetPauses configures the module pause view consulted by every operation.
func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(auctionEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func ensureAccount(acc *types.Account) *types.Account {
	if acc == nil {
		return &types.Account{Balance: big.NewInt(0)}
	}
	if acc.Balance == nil {
		acc.Balance = big.NewInt(0)
	}
	return acc
}

func (e *Engine) loadAuction(id uint64) (*Auction, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	a, ok := e.state.AuctionGet(id)
	if !ok {
		return nil, errAuctionNotFound
	}
	return a, nil
}

func (e *Engine) storeAuction(a *Auction) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return e.state.AuctionPut(a)
}

// transferNative moves native value between accounts tracked by the state
// backend.
func (e *Engine) transferNative(from, to [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	amt := cloneBigInt(amount)
	if amt.Sign() == 0 {
		return nil
	}
	if amt.Sign() < 0 {
		return fmt.Errorf("auction: negative transfer amount")
	}
	fromAcc, err := e.state.GetAccount(from[:])
	if err != nil {
		return err
	}
	toAcc, err := e.state.GetAccount(to[:])
	if err != nil {
		return err
	}
	fromAcc = ensureAccount(fromAcc)
	toAcc = ensureAccount(toAcc)
	if fromAcc.Balance.Cmp(amt) < 0 {
		return fmt.Errorf("auction: insufficient balance")
	}
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amt)
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amt)
	if err := e.state.PutAccount(from[:], fromAcc); err != nil {
		return err
	}
	return e.state.PutAccount(to[:], toAcc)
}

// CreateAuction validates the definition, takes custody of the offered asset
// and persists the new auction under the next sequential identifier.
func (e *Engine) CreateAuction(caller [20]byte, value *big.Int, title string, kind AssetKind, startPrice, bidStep *big.Int, endTime int64, assetRef [20]byte, assetID uint64, assetAmount *big.Int, arbiter [20]byte) (*Auction, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if len(title) < titleMinBytes || len(title) > titleMaxBytes {
		return nil, fmt.Errorf("auction: title length must be between %d and %d bytes", titleMinBytes, titleMaxBytes)
	}
	if startPrice == nil || startPrice.Sign() <= 0 {
		return nil, fmt.Errorf("auction: start price must be positive")
	}
	if bidStep == nil || bidStep.Sign() <= 0 {
		return nil, fmt.Errorf("auction: bid step must be positive")
	}
	now := e.now()
	if endTime <= now {
		return nil, fmt.Errorf("auction: end time must be in the future")
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("auction: invalid asset kind: %d", kind)
	}
	if kind == AssetReal {
		if arbiter == ([20]byte{}) {
			return nil, fmt.Errorf("auction: arbiter must not be empty")
		}
		if arbiter == caller {
			return nil, fmt.Errorf("auction: arbiter must not be the creator")
		}
	}
	id, err := e.state.AuctionNextID()
	if err != nil {
		return nil, err
	}
	asset, err := e.depositAsset(id, caller, value, kind, assetRef, assetID, assetAmount, arbiter)
	if err != nil {
		return nil, err
	}
	a := &Auction{
		ID:         id,
		Title:      title,
		Creator:    caller,
		StartPrice: cloneBigInt(startPrice),
		BidStep:    cloneBigInt(bidStep),
		EndTime:    endTime,
		CreatedAt:  now,
		Status:     StatusActive,
		Asset:      asset,
	}
	if err := e.storeAuction(a); err != nil {
		return nil, err
	}
	e.emit(NewAuctionCreatedEvent(a))
	return a.Clone(), nil
}

// WithdrawFees drains the accumulated fee pool to the protocol owner.
func (e *Engine) WithdrawFees(caller [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if caller != e.owner {
		return nil, fmt.Errorf("auction: only the protocol owner may withdraw fees")
	}
	pool, err := e.state.FeePoolBalance()
	if err != nil {
		return nil, err
	}
	if pool == nil || pool.Sign() == 0 {
		return nil, fmt.Errorf("auction: fee pool is empty")
	}
	if err := e.state.FeePoolReset(); err != nil {
		return nil, err
	}
	if err := e.transferNative(e.state.AuctionVaultAddress(), e.owner, pool); err != nil {
		return nil, err
	}
	return cloneBigInt(pool), nil
}
