package main

import (
	"bytes"
	"flag"
	"log/slog"
	"math/big"
	"os"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus"

	"auctionhouse/config"
	"auctionhouse/core"
	"auctionhouse/core/events"
	"auctionhouse/core/types"
	"auctionhouse/native/auction"
	"auctionhouse/native/fees"
	"auctionhouse/observability"
	"auctionhouse/observability/logging"
)

type eventLogger struct {
	log *slog.Logger
}

func (l eventLogger) Emit(evt events.Event) {
	args := []any{"type", evt.EventType()}
	if carrier, ok := evt.(interface{ Event() *types.Event }); ok {
		if e := carrier.Event(); e != nil {
			for key, value := range e.Attributes {
				args = append(args, key, value)
			}
		}
	}
	l.log.Info("event", args...)
}

func addressFromSeed(seed byte) [20]byte {
	key, err := ethcrypto.ToECDSA(bytes.Repeat([]byte{seed}, 32))
	if err != nil {
		panic(err)
	}
	addr := ethcrypto.PubkeyToAddress(key.PublicKey)
	var out [20]byte
	copy(out[:], addr[:])
	return out
}

func main() {
	configPath := flag.String("config", "auctionsim.toml", "path to the TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	log := logging.Setup(cfg.ServiceName, cfg.Environment)

	owner, err := cfg.OwnerAddress()
	if err != nil {
		log.Error("owner address", "err", err)
		os.Exit(1)
	}
	policy, err := fees.NewPolicy(cfg.FeePercent)
	if err != nil {
		log.Error("fee policy", "err", err)
		os.Exit(1)
	}
	if err := observability.Metrics().Register(prometheus.DefaultRegisterer); err != nil {
		log.Error("register metrics", "err", err)
		os.Exit(1)
	}

	ledger := core.NewLedger(owner, policy)
	ledger.SetEmitter(eventLogger{log: log})

	var now int64 = 1_700_000_000
	ledger.SetNowFunc(func() int64 { return now })

	seller := addressFromSeed(0x01)
	alice := addressFromSeed(0x02)
	bob := addressFromSeed(0x03)

	unit := big.NewInt(1_000_000_000)
	seed := new(big.Int).Mul(unit, big.NewInt(100))
	for _, addr := range [][20]byte{seller, alice, bob} {
		if err := ledger.State().Credit(addr, seed); err != nil {
			log.Error("seed balance", "err", err)
			os.Exit(1)
		}
	}

	// Native-asset auction: the seller escrows 10 units, two bidders compete,
	// expiry, then the two-call settlement.
	deposit := new(big.Int).Mul(unit, big.NewInt(10))
	startPrice := new(big.Int).Mul(unit, big.NewInt(2))
	bidStep := new(big.Int).Div(unit, big.NewInt(10))
	created, err := ledger.CreateAuction(seller, deposit, "genesis lot", auction.AssetFungible, startPrice, bidStep, now+3600, [20]byte{}, 0, deposit, [20]byte{})
	if err != nil {
		log.Error("create auction", "err", err)
		os.Exit(1)
	}
	log.Info("auction created", "id", created.ID, "title", created.Title)

	if _, err := ledger.PlaceBid(created.ID, alice, new(big.Int).Mul(unit, big.NewInt(3))); err != nil {
		log.Error("first bid", "err", err)
		os.Exit(1)
	}
	if _, err := ledger.PlaceBid(created.ID, bob, new(big.Int).Mul(unit, big.NewInt(4))); err != nil {
		log.Error("second bid", "err", err)
		os.Exit(1)
	}

	now += 7200 // past the end time

	if err := ledger.RequestWithdraw(created.ID, seller); err != nil {
		log.Error("creator settlement", "err", err)
		os.Exit(1)
	}
	if err := ledger.RequestWithdraw(created.ID, bob); err != nil {
		log.Error("winner settlement", "err", err)
		os.Exit(1)
	}

	view, err := ledger.GetAuction(created.ID)
	if err != nil {
		log.Error("read auction", "err", err)
		os.Exit(1)
	}
	log.Info("auction settled", "id", view.ID, "status", view.Status.String(), "bids", view.BidCount)

	drained, err := ledger.WithdrawFees(owner)
	if err != nil {
		log.Error("withdraw fees", "err", err)
		os.Exit(1)
	}
	log.Info("fees drained", "amount", drained.String())
}
