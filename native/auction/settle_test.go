package auction

import (
	"math/big"
	"testing"
)

func TestRequestWithdrawGuards(t *testing.T) {
	state := newMockState()
	engine, clock := newTestEngineWithClock(state)
	creator := newTestAddress(0x01)
	alice := newTestAddress(0x0A)
	state.setBalance(alice, big.NewInt(10_000))
	created := newNativeAuction(t, engine, state, creator)
	if _, err := engine.PlaceBid(created.ID, alice, big.NewInt(1100)); err != nil {
		t.Fatalf("bid: %v", err)
	}

	if err := engine.RequestWithdraw(created.ID, creator); err == nil {
		t.Fatalf("expected settlement before end to fail")
	}
	clock.now = created.EndTime
	if err := engine.RequestWithdraw(created.ID, creator); err == nil {
		t.Fatalf("expected settlement at end time to fail")
	}
	clock.now = created.EndTime + 1
	if err := engine.RequestWithdraw(created.ID, newTestAddress(0x77)); err == nil {
		t.Fatalf("expected outsider settlement to fail")
	}
	if err := engine.RequestWithdraw(99, creator); err == nil {
		t.Fatalf("expected unknown auction to fail")
	}
}

func TestRequestWithdrawZeroBids(t *testing.T) {
	state := newMockState()
	engine, clock := newTestEngineWithClock(state)
	creator := newTestAddress(0x01)
	created := newNativeAuction(t, engine, state, creator)
	clock.now = created.EndTime + 1

	before := state.balance(creator)
	if err := engine.RequestWithdraw(created.ID, creator); err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	// The 190 net escrow comes back; the 10 fee stays in the pool.
	if got := state.balance(creator); got.Cmp(new(big.Int).Add(before, big.NewInt(190))) != 0 {
		t.Fatalf("creator balance = %s after reclaim", got)
	}
	view, err := engine.GetAuction(created.ID)
	if err != nil {
		t.Fatalf("get auction: %v", err)
	}
	if view.Status != StatusFinalized {
		t.Fatalf("status = %s, want finalized", view.Status)
	}
	if err := engine.RequestWithdraw(created.ID, creator); err == nil {
		t.Fatalf("expected settlement after finalization to fail")
	}
}

func TestRequestWithdrawTwoCallSettlement(t *testing.T) {
	run := func(t *testing.T, creatorFirst bool) {
		state := newMockState()
		engine, clock := newTestEngineWithClock(state)
		emitter := &capturingEmitter{}
		engine.SetEmitter(emitter)
		creator := newTestAddress(0x01)
		alice := newTestAddress(0x0A)
		state.setBalance(alice, big.NewInt(10_000))
		created := newNativeAuction(t, engine, state, creator)
		if _, err := engine.PlaceBid(created.ID, alice, big.NewInt(1100)); err != nil {
			t.Fatalf("bid: %v", err)
		}
		clock.now = created.EndTime + 1
		poolBefore := new(big.Int).Set(state.feePool)
		creatorBefore := state.balance(creator)
		aliceBefore := state.balance(alice)

		callers := [][20]byte{creator, alice}
		if !creatorFirst {
			callers[0], callers[1] = callers[1], callers[0]
		}
		if err := engine.RequestWithdraw(created.ID, callers[0]); err != nil {
			t.Fatalf("first settlement call: %v", err)
		}
		view, err := engine.GetAuction(created.ID)
		if err != nil {
			t.Fatalf("get auction: %v", err)
		}
		if view.Status != StatusWaitFinalization {
			t.Fatalf("status after first call = %s, want wait_finalization", view.Status)
		}
		if got := len(emitter.byType(EventTypeAuctionFinalized)); got != 0 {
			t.Fatalf("finalized events after first call = %d", got)
		}
		if err := engine.RequestWithdraw(created.ID, callers[1]); err != nil {
			t.Fatalf("second settlement call: %v", err)
		}
		view, err = engine.GetAuction(created.ID)
		if err != nil {
			t.Fatalf("get auction: %v", err)
		}
		if view.Status != StatusFinalized {
			t.Fatalf("status after second call = %s, want finalized", view.Status)
		}
		if got := len(emitter.byType(EventTypeAuctionFinalized)); got != 1 {
			t.Fatalf("finalized events = %d, want 1", got)
		}
		// Creator receives the winning net bid, the winner the escrowed asset.
		if got := state.balance(creator); got.Cmp(new(big.Int).Add(creatorBefore, big.NewInt(1045))) != 0 {
			t.Fatalf("creator balance = %s", got)
		}
		if got := state.balance(alice); got.Cmp(new(big.Int).Add(aliceBefore, big.NewInt(190))) != 0 {
			t.Fatalf("winner balance = %s", got)
		}
		if state.feePool.Cmp(poolBefore) != 0 {
			t.Fatalf("fee pool moved during settlement: %s -> %s", poolBefore, state.feePool)
		}
		// Both legs are idempotent.
		if err := engine.RequestWithdraw(created.ID, creator); err == nil {
			t.Fatalf("expected repeat settlement to fail")
		}
	}

	t.Run("creator first", func(t *testing.T) { run(t, true) })
	t.Run("winner first", func(t *testing.T) { run(t, false) })
}

func TestRequestWithdrawRealConsensus(t *testing.T) {
	state := newMockState()
	engine, clock := newTestEngineWithClock(state)
	emitter := &capturingEmitter{}
	engine.SetEmitter(emitter)
	creator := newTestAddress(0x01)
	arbiter := newTestAddress(0x02)
	alice := newTestAddress(0x0A)
	state.setBalance(alice, big.NewInt(10_000))
	created := newRealAuction(t, engine, creator, arbiter)
	if _, err := engine.PlaceBid(created.ID, alice, big.NewInt(1100)); err != nil {
		t.Fatalf("bid: %v", err)
	}
	clock.now = created.EndTime + 1
	creatorBefore := state.balance(creator)

	// One vote is not enough, even from the creator.
	if err := engine.RequestWithdraw(created.ID, creator); err != nil {
		t.Fatalf("creator vote: %v", err)
	}
	if state.balance(creator).Cmp(creatorBefore) != 0 {
		t.Fatalf("payout before consensus")
	}
	// The arbiter's vote reaches the threshold but the payout waits for the
	// creator's own call.
	if err := engine.RequestWithdraw(created.ID, arbiter); err != nil {
		t.Fatalf("arbiter vote: %v", err)
	}
	if state.balance(creator).Cmp(creatorBefore) != 0 {
		t.Fatalf("payout on a non-creator call")
	}
	if err := engine.RequestWithdraw(created.ID, creator); err != nil {
		t.Fatalf("creator trigger: %v", err)
	}
	if got := state.balance(creator); got.Cmp(new(big.Int).Add(creatorBefore, big.NewInt(1045))) != 0 {
		t.Fatalf("creator balance = %s", got)
	}
	view, err := engine.GetAuction(created.ID)
	if err != nil {
		t.Fatalf("get auction: %v", err)
	}
	if view.Status != StatusFinalized {
		t.Fatalf("status = %s, want finalized", view.Status)
	}
	if got := len(emitter.byType(EventTypeAuctionFinalized)); got != 1 {
		t.Fatalf("finalized events = %d, want 1", got)
	}
}

func TestApproveRefund(t *testing.T) {
	t.Run("bidder trigger pays", func(t *testing.T) {
		state := newMockState()
		engine, clock := newTestEngineWithClock(state)
		emitter := &capturingEmitter{}
		engine.SetEmitter(emitter)
		creator := newTestAddress(0x01)
		arbiter := newTestAddress(0x02)
		alice := newTestAddress(0x0A)
		state.setBalance(alice, big.NewInt(10_000))
		created := newRealAuction(t, engine, creator, arbiter)
		if _, err := engine.PlaceBid(created.ID, alice, big.NewInt(1100)); err != nil {
			t.Fatalf("bid: %v", err)
		}
		clock.now = created.EndTime + 1
		aliceBefore := state.balance(alice)

		if err := engine.ApproveRefund(created.ID, creator); err != nil {
			t.Fatalf("creator vote: %v", err)
		}
		if state.balance(alice).Cmp(aliceBefore) != 0 {
			t.Fatalf("payout before consensus")
		}
		if err := engine.ApproveRefund(created.ID, alice); err != nil {
			t.Fatalf("bidder vote: %v", err)
		}
		if got := state.balance(alice); got.Cmp(new(big.Int).Add(aliceBefore, big.NewInt(1045))) != 0 {
			t.Fatalf("bidder balance = %s", got)
		}
		view, err := engine.GetAuction(created.ID)
		if err != nil {
			t.Fatalf("get auction: %v", err)
		}
		if view.Status != StatusRefunded {
			t.Fatalf("status = %s, want refunded", view.Status)
		}
		if got := len(emitter.byType(EventTypeAuctionRefunded)); got != 1 {
			t.Fatalf("refunded events = %d, want 1", got)
		}
		// The creator closes out the refunded auction.
		if err := engine.RequestWithdraw(created.ID, alice); err == nil {
			t.Fatalf("expected non-creator close-out to fail")
		}
		if err := engine.RequestWithdraw(created.ID, creator); err != nil {
			t.Fatalf("close out: %v", err)
		}
		view, err = engine.GetAuction(created.ID)
		if err != nil {
			t.Fatalf("get auction: %v", err)
		}
		if view.Status != StatusFinalized {
			t.Fatalf("status = %s, want finalized", view.Status)
		}
	})

	t.Run("threshold without bidder never pays", func(t *testing.T) {
		state := newMockState()
		engine, clock := newTestEngineWithClock(state)
		creator := newTestAddress(0x01)
		arbiter := newTestAddress(0x02)
		alice := newTestAddress(0x0A)
		state.setBalance(alice, big.NewInt(10_000))
		created := newRealAuction(t, engine, creator, arbiter)
		if _, err := engine.PlaceBid(created.ID, alice, big.NewInt(1100)); err != nil {
			t.Fatalf("bid: %v", err)
		}
		clock.now = created.EndTime + 1
		aliceBefore := state.balance(alice)

		if err := engine.ApproveRefund(created.ID, creator); err != nil {
			t.Fatalf("creator vote: %v", err)
		}
		if err := engine.ApproveRefund(created.ID, arbiter); err != nil {
			t.Fatalf("arbiter vote: %v", err)
		}
		if state.balance(alice).Cmp(aliceBefore) != 0 {
			t.Fatalf("payout without the bidder's call")
		}
		view, err := engine.GetAuction(created.ID)
		if err != nil {
			t.Fatalf("get auction: %v", err)
		}
		if view.Status != StatusActive {
			t.Fatalf("status = %s, want active", view.Status)
		}
		// The bidder's own call completes the refund.
		if err := engine.ApproveRefund(created.ID, alice); err != nil {
			t.Fatalf("bidder trigger: %v", err)
		}
		if got := state.balance(alice); got.Cmp(new(big.Int).Add(aliceBefore, big.NewInt(1045))) != 0 {
			t.Fatalf("bidder balance = %s", got)
		}
	})

	t.Run("guards", func(t *testing.T) {
		state := newMockState()
		engine, clock := newTestEngineWithClock(state)
		creator := newTestAddress(0x01)
		arbiter := newTestAddress(0x02)
		alice := newTestAddress(0x0A)
		state.setBalance(alice, big.NewInt(10_000))

		native := newNativeAuction(t, engine, state, creator)
		real := newRealAuction(t, engine, creator, arbiter)
		if _, err := engine.PlaceBid(real.ID, alice, big.NewInt(1100)); err != nil {
			t.Fatalf("bid: %v", err)
		}

		if err := engine.ApproveRefund(real.ID, creator); err == nil {
			t.Fatalf("expected refund before end to fail")
		}
		clock.now = real.EndTime + 1
		if err := engine.ApproveRefund(native.ID, creator); err == nil {
			t.Fatalf("expected refund of custodied asset to fail")
		}
		if err := engine.ApproveRefund(real.ID, newTestAddress(0x77)); err == nil {
			t.Fatalf("expected outsider refund vote to fail")
		}

		empty := newRealAuctionEnding(t, engine, creator, arbiter, clock.now+100)
		clock.now += 101
		if err := engine.ApproveRefund(empty.ID, creator); err == nil {
			t.Fatalf("expected refund without bids to fail")
		}
	})
}

func newRealAuctionEnding(t *testing.T, engine *Engine, creator, arbiter [20]byte, endTime int64) *Auction {
	t.Helper()
	created, err := engine.CreateAuction(creator, nil, "vintage cello", AssetReal, big.NewInt(1000), big.NewInt(100), endTime, [20]byte{}, 0, nil, arbiter)
	if err != nil {
		t.Fatalf("create auction: %v", err)
	}
	return created
}
