package state

import (
	"encoding/binary"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"auctionhouse/core/types"
	"auctionhouse/native/assessment"
	"auctionhouse/native/auction"
)

var (
	bidPrefix    = []byte("auction/bid/")
	recordPrefix = []byte("auction/escrow/")

	vaultLabel = []byte("auctionhouse/module/vault")
)

// Manager is the in-memory journaled state backend for the engines. Every
// mutation records an undo entry so a public operation can be reverted as a
// whole when any step fails; reads always return clones so callers never
// alias stored values.
type Manager struct {
	accounts    map[[20]byte]*types.Account
	auctions    map[uint64]*auction.Auction
	auctionSeq  uint64
	bids        map[[32]byte]*auction.Bid
	records     map[[32]byte]*auction.EscrowRecord
	feePool     *big.Int
	projects    map[uint64]*assessment.Project
	projectSeq  uint64
	submissions map[uint64]*assessment.Submission
	submitSeq   uint64

	fungibles     map[[20]byte]auction.FungibleToken
	nonFungibles  map[[20]byte]auction.NonFungibleToken
	semiFungibles map[[20]byte]auction.SemiFungibleToken

	paused map[string]bool

	journal      []func(*Manager)
	snapshots    map[int]int
	nextSnapshot int
}

// NewManager creates an empty state manager.
func NewManager() *Manager {
	return &Manager{
		accounts:      make(map[[20]byte]*types.Account),
		auctions:      make(map[uint64]*auction.Auction),
		bids:          make(map[[32]byte]*auction.Bid),
		records:       make(map[[32]byte]*auction.EscrowRecord),
		feePool:       big.NewInt(0),
		projects:      make(map[uint64]*assessment.Project),
		submissions:   make(map[uint64]*assessment.Submission),
		fungibles:     make(map[[20]byte]auction.FungibleToken),
		nonFungibles:  make(map[[20]byte]auction.NonFungibleToken),
		semiFungibles: make(map[[20]byte]auction.SemiFungibleToken),
		paused:        make(map[string]bool),
		snapshots:     make(map[int]int),
	}
}

func (m *Manager) record(undo func(*Manager)) {
	m.journal = append(m.journal, undo)
}

// Snapshot marks the current journal position and returns its identifier.
func (m *Manager) Snapshot() int {
	id := m.nextSnapshot
	m.nextSnapshot++
	m.snapshots[id] = len(m.journal)
	return id
}

// RevertToSnapshot undoes every mutation recorded since the snapshot was
// taken.
func (m *Manager) RevertToSnapshot(id int) {
	target, ok := m.snapshots[id]
	if !ok {
		return
	}
	for len(m.journal) > target {
		undo := m.journal[len(m.journal)-1]
		m.journal = m.journal[:len(m.journal)-1]
		undo(m)
	}
	delete(m.snapshots, id)
}

// DiscardSnapshot forgets the snapshot without reverting, keeping the journal
// from growing across committed operations.
func (m *Manager) DiscardSnapshot(id int) {
	target, ok := m.snapshots[id]
	if !ok {
		return
	}
	delete(m.snapshots, id)
	if len(m.snapshots) == 0 && target == 0 {
		m.journal = m.journal[:0]
	}
}

func bidKey(auctionID, bidID uint64) [32]byte {
	buf := make([]byte, len(bidPrefix)+16)
	copy(buf, bidPrefix)
	binary.BigEndian.PutUint64(buf[len(bidPrefix):], auctionID)
	binary.BigEndian.PutUint64(buf[len(bidPrefix)+8:], bidID)
	return ethcrypto.Keccak256Hash(buf)
}

func recordKey(auctionID uint64, depositor [20]byte) [32]byte {
	buf := make([]byte, len(recordPrefix)+8+len(depositor))
	copy(buf, recordPrefix)
	binary.BigEndian.PutUint64(buf[len(recordPrefix):], auctionID)
	copy(buf[len(recordPrefix)+8:], depositor[:])
	return ethcrypto.Keccak256Hash(buf)
}

// AuctionVaultAddress returns the module account custodying native value and
// tokens. The address is derived from a fixed label.
func (m *Manager) AuctionVaultAddress() [20]byte {
	var addr [20]byte
	hash := ethcrypto.Keccak256(vaultLabel)
	copy(addr[:], hash[12:])
	return addr
}

// GetAccount returns a clone of the stored account, or a zero-balance account
// for unknown addresses.
func (m *Manager) GetAccount(addr []byte) (*types.Account, error) {
	var key [20]byte
	copy(key[:], addr)
	if acc, ok := m.accounts[key]; ok {
		return acc.Clone(), nil
	}
	return &types.Account{Balance: big.NewInt(0)}, nil
}

// PutAccount stores a clone of the account.
func (m *Manager) PutAccount(addr []byte, account *types.Account) error {
	var key [20]byte
	copy(key[:], addr)
	prev, hadPrev := m.accounts[key]
	m.record(func(m *Manager) {
		if hadPrev {
			m.accounts[key] = prev
		} else {
			delete(m.accounts, key)
		}
	})
	m.accounts[key] = account.Clone()
	return nil
}

// Credit adds native value to an account. Used to seed balances.
func (m *Manager) Credit(addr [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: credit amount must be non-negative")
	}
	acc, err := m.GetAccount(addr[:])
	if err != nil {
		return err
	}
	acc.Balance = new(big.Int).Add(acc.Balance, amount)
	return m.PutAccount(addr[:], acc)
}

// AuctionPut validates and stores a clone of the auction.
func (m *Manager) AuctionPut(a *auction.Auction) error {
	sanitized, err := auction.SanitizeAuction(a)
	if err != nil {
		return err
	}
	prev, hadPrev := m.auctions[sanitized.ID]
	m.record(func(m *Manager) {
		if hadPrev {
			m.auctions[sanitized.ID] = prev
		} else {
			delete(m.auctions, sanitized.ID)
		}
	})
	m.auctions[sanitized.ID] = sanitized
	return nil
}

// AuctionGet returns a clone of the stored auction.
func (m *Manager) AuctionGet(id uint64) (*auction.Auction, bool) {
	a, ok := m.auctions[id]
	if !ok {
		return nil, false
	}
	return a.Clone(), true
}

// AuctionNextID assigns the next auction identifier. Identifiers are 1-based
// and never reused.
func (m *Manager) AuctionNextID() (uint64, error) {
	m.record(func(m *Manager) { m.auctionSeq-- })
	m.auctionSeq++
	return m.auctionSeq, nil
}

// AuctionCount returns the number of auctions ever created.
func (m *Manager) AuctionCount() uint64 { return m.auctionSeq }

// BidPut stores a clone of the bid under its auction.
func (m *Manager) BidPut(auctionID uint64, bid *auction.Bid) error {
	if bid == nil || bid.ID == 0 {
		return fmt.Errorf("state: bid id must be positive")
	}
	key := bidKey(auctionID, bid.ID)
	prev, hadPrev := m.bids[key]
	m.record(func(m *Manager) {
		if hadPrev {
			m.bids[key] = prev
		} else {
			delete(m.bids, key)
		}
	})
	m.bids[key] = bid.Clone()
	return nil
}

// BidGet returns a clone of the stored bid.
func (m *Manager) BidGet(auctionID, bidID uint64) (*auction.Bid, bool) {
	bid, ok := m.bids[bidKey(auctionID, bidID)]
	if !ok {
		return nil, false
	}
	return bid.Clone(), true
}

// BidList returns every bid of the auction in placement order. Bid ids are
// sequential from 1, so the scan stops at the first gap.
func (m *Manager) BidList(auctionID uint64) ([]*auction.Bid, error) {
	out := make([]*auction.Bid, 0)
	for id := uint64(1); ; id++ {
		bid, ok := m.bids[bidKey(auctionID, id)]
		if !ok {
			return out, nil
		}
		out = append(out, bid.Clone())
	}
}

// EscrowRecordPut stores a clone of the escrow record.
func (m *Manager) EscrowRecordPut(auctionID uint64, depositor [20]byte, record *auction.EscrowRecord) error {
	if record == nil {
		return fmt.Errorf("state: nil escrow record")
	}
	key := recordKey(auctionID, depositor)
	prev, hadPrev := m.records[key]
	m.record(func(m *Manager) {
		if hadPrev {
			m.records[key] = prev
		} else {
			delete(m.records, key)
		}
	})
	m.records[key] = record.Clone()
	return nil
}

// EscrowRecordGet returns a clone of the stored escrow record.
func (m *Manager) EscrowRecordGet(auctionID uint64, depositor [20]byte) (*auction.EscrowRecord, bool) {
	record, ok := m.records[recordKey(auctionID, depositor)]
	if !ok {
		return nil, false
	}
	return record.Clone(), true
}

// FeePoolAdd accumulates deducted fees into the protocol-owned pool.
func (m *Manager) FeePoolAdd(amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("state: negative fee amount")
	}
	prev := new(big.Int).Set(m.feePool)
	m.record(func(m *Manager) { m.feePool = prev })
	m.feePool = new(big.Int).Add(m.feePool, amount)
	return nil
}

// FeePoolBalance returns a copy of the accumulated pool.
func (m *Manager) FeePoolBalance() (*big.Int, error) {
	return new(big.Int).Set(m.feePool), nil
}

// FeePoolReset zeroes the pool. Called when the owner drains it.
func (m *Manager) FeePoolReset() error {
	prev := new(big.Int).Set(m.feePool)
	m.record(func(m *Manager) { m.feePool = prev })
	m.feePool = big.NewInt(0)
	return nil
}

// RegisterFungibleToken wires an external fungible token contract under its
// address. Registration is part of deployment wiring and is not journaled.
func (m *Manager) RegisterFungibleToken(addr [20]byte, token auction.FungibleToken) {
	m.fungibles[addr] = token
}

// RegisterNonFungibleToken wires an external non-fungible token contract.
func (m *Manager) RegisterNonFungibleToken(addr [20]byte, token auction.NonFungibleToken) {
	m.nonFungibles[addr] = token
}

// RegisterSemiFungibleToken wires an external semi-fungible token contract.
func (m *Manager) RegisterSemiFungibleToken(addr [20]byte, token auction.SemiFungibleToken) {
	m.semiFungibles[addr] = token
}

// FungibleToken resolves a registered fungible token contract.
func (m *Manager) FungibleToken(addr [20]byte) (auction.FungibleToken, error) {
	token, ok := m.fungibles[addr]
	if !ok {
		return nil, fmt.Errorf("state: unknown fungible token %x", addr)
	}
	return token, nil
}

// NonFungibleToken resolves a registered non-fungible token contract.
func (m *Manager) NonFungibleToken(addr [20]byte) (auction.NonFungibleToken, error) {
	token, ok := m.nonFungibles[addr]
	if !ok {
		return nil, fmt.Errorf("state: unknown non-fungible token %x", addr)
	}
	return token, nil
}

// SemiFungibleToken resolves a registered semi-fungible token contract.
func (m *Manager) SemiFungibleToken(addr [20]byte) (auction.SemiFungibleToken, error) {
	token, ok := m.semiFungibles[addr]
	if !ok {
		return nil, fmt.Errorf("state: unknown semi-fungible token %x", addr)
	}
	return token, nil
}

// SetPaused toggles the pause flag for a module.
func (m *Manager) SetPaused(module string, paused bool) {
	m.paused[module] = paused
}

// IsPaused implements the pause view consulted by the engines.
func (m *Manager) IsPaused(module string) bool {
	return m.paused[module]
}

// ProjectPut stores a clone of the project.
func (m *Manager) ProjectPut(p *assessment.Project) error {
	if p == nil || p.ID == 0 {
		return fmt.Errorf("state: project id must be positive")
	}
	prev, hadPrev := m.projects[p.ID]
	m.record(func(m *Manager) {
		if hadPrev {
			m.projects[p.ID] = prev
		} else {
			delete(m.projects, p.ID)
		}
	})
	m.projects[p.ID] = p.Clone()
	return nil
}

// ProjectGet returns a clone of the stored project.
func (m *Manager) ProjectGet(id uint64) (*assessment.Project, bool) {
	p, ok := m.projects[id]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// ProjectNextID assigns the next project identifier.
func (m *Manager) ProjectNextID() (uint64, error) {
	m.record(func(m *Manager) { m.projectSeq-- })
	m.projectSeq++
	return m.projectSeq, nil
}

// SubmissionPut stores a clone of the submission.
func (m *Manager) SubmissionPut(s *assessment.Submission) error {
	if s == nil || s.ID == 0 {
		return fmt.Errorf("state: submission id must be positive")
	}
	prev, hadPrev := m.submissions[s.ID]
	m.record(func(m *Manager) {
		if hadPrev {
			m.submissions[s.ID] = prev
		} else {
			delete(m.submissions, s.ID)
		}
	})
	m.submissions[s.ID] = s.Clone()
	return nil
}

// SubmissionGet returns a clone of the stored submission.
func (m *Manager) SubmissionGet(id uint64) (*assessment.Submission, bool) {
	s, ok := m.submissions[id]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// SubmissionNextID assigns the next submission identifier.
func (m *Manager) SubmissionNextID() (uint64, error) {
	m.record(func(m *Manager) { m.submitSeq-- })
	m.submitSeq++
	return m.submitSeq, nil
}
