package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"azzurri/config"
	"azzurri/core/auth"
	"azzurri/core/bank"
	"azzurri/core/custody"
	nativecommon "azzurri/native/common"
	"azzurri/native/sale"
	"azzurri/native/staking"
	"azzurri/native/token"
	"azzurri/observability"
	"azzurri/observability/logging"
	"azzurri/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup("azzurrid", cfg.Env)

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "state"))
	if err != nil {
		logger.Error("open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	if err := run(cfg, logger, db); err != nil {
		logger.Error("daemon exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, db storage.Database) error {
	owner, err := config.ParseAddress(cfg.Token.Owner)
	if err != nil {
		return err
	}
	allowlist := auth.NewAllowlist(owner)
	allowlist.SetMinter(owner, true)
	pauses := nativecommon.NewPauseSet()

	ledgers := bank.New()

	mainAsset, mainEngine, err := buildToken(cfg.Token, db, allowlist, pauses, logger)
	if err != nil {
		return err
	}
	ledgers.Register(mainAsset, mainEngine)

	paymentAsset, err := config.ParseAddress(cfg.Sale.PaymentAsset)
	if err != nil {
		return err
	}
	if cfg.PaymentToken.Name != "" {
		asset, engine, err := buildToken(cfg.PaymentToken, db, allowlist, pauses, logger)
		if err != nil {
			return err
		}
		ledgers.Register(asset, engine)
		if asset != paymentAsset {
			logger.Warn("payment token asset differs from sale payment asset",
				slog.String("token", asset.Hex()), slog.String("sale", paymentAsset.Hex()))
		}
	}

	tokenPool, err := buildTokenPool(cfg.TokenStaking, db, ledgers, allowlist, pauses, owner, logger)
	if err != nil {
		return err
	}
	nftPool, err := buildNFTPool(cfg.NFTStaking, db, ledgers, allowlist, pauses, owner, logger)
	if err != nil {
		return err
	}
	saleEngine, saleAddress, err := buildSale(cfg.Sale, db, ledgers, allowlist, pauses, logger)
	if err != nil {
		return err
	}
	if pool, err := tokenPool.PoolInfo(); err == nil {
		logger.Info("token pool ready",
			slog.Uint64("totalUsers", pool.TotalUsers),
			slog.String("rewardReserve", pool.RewardReserve.String()))
	}
	if pool, err := nftPool.PoolInfo(); err == nil {
		logger.Info("item pool ready", slog.Uint64("totalUsers", pool.TotalUsers))
	}
	if info, err := saleEngine.Info(); err == nil {
		logger.Info("sale ready",
			slog.Int64("startTime", info.StartTime),
			slog.Int64("endTime", info.EndTime),
			slog.String("totalPaid", info.TotalPaid.String()))
	}

	// System addresses hold escrowed balances; fees on their movements would
	// leak value out of the pools.
	for _, raw := range []string{cfg.TokenStaking.PoolAddress, cfg.NFTStaking.PoolAddress, cfg.TokenStaking.FeeRecipient} {
		addr, err := config.ParseAddress(raw)
		if err != nil {
			return err
		}
		if err := mainEngine.SetFeeExempt(owner, addr, true); err != nil {
			return err
		}
	}
	if err := mainEngine.SetFeeExempt(owner, saleAddress, true); err != nil {
		return err
	}

	logger.Info("engines initialised",
		slog.String("asset", mainAsset.Hex()),
		slog.String("sale", saleAddress.Hex()))

	return serveMetrics(cfg.MetricsAddress, logger)
}

func buildToken(tc config.TokenConfig, db storage.Database, allowlist *auth.Allowlist, pauses nativecommon.PauseView, logger *slog.Logger) (common.Address, *token.Engine, error) {
	asset, err := config.ParseAddress(tc.Asset)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("token %s: %w", tc.Symbol, err)
	}
	owner, err := config.ParseAddress(tc.Owner)
	if err != nil {
		return common.Address{}, nil, err
	}
	collector, err := config.ParseAddress(tc.Collector)
	if err != nil {
		return common.Address{}, nil, err
	}
	maxSupply, err := config.ParseAmount(tc.MaxSupply)
	if err != nil {
		return common.Address{}, nil, err
	}
	initialSupply := big.NewInt(0)
	if tc.InitialSupply != "" {
		if initialSupply, err = config.ParseAmount(tc.InitialSupply); err != nil {
			return common.Address{}, nil, err
		}
	}

	engine := token.NewEngine(collector)
	engine.SetState(storage.NewTokenState(db, asset))
	engine.SetAuthority(allowlist)
	engine.SetPauses(pauses)
	engine.SetEmitter(observability.NewObserver(asset.Hex(), logger, nil))
	if err := engine.Init(token.Token{
		Name:           tc.Name,
		Symbol:         tc.Symbol,
		MaxSupply:      maxSupply,
		BuyFeePercent:  tc.BuyFeePercent,
		SellFeePercent: tc.SellFeePercent,
		FeeEndTime:     tc.FeeEndTime,
	}, owner, initialSupply); err != nil {
		return common.Address{}, nil, fmt.Errorf("init token %s: %w", tc.Symbol, err)
	}
	return asset, engine, nil
}

func buildTokenPool(sc config.StakingConfig, db storage.Database, ledgers *bank.Bank, allowlist *auth.Allowlist, pauses nativecommon.PauseView, owner common.Address, logger *slog.Logger) (*staking.TokenPool, error) {
	stakeAsset, err := config.ParseAddress(sc.StakeAsset)
	if err != nil {
		return nil, err
	}
	rewardAsset, err := config.ParseAddress(sc.RewardAsset)
	if err != nil {
		return nil, err
	}
	poolAddress, err := config.ParseAddress(sc.PoolAddress)
	if err != nil {
		return nil, err
	}
	feeRecipient, err := config.ParseAddress(sc.FeeRecipient)
	if err != nil {
		return nil, err
	}

	pool := staking.NewTokenPool(stakeAsset, rewardAsset, poolAddress, feeRecipient)
	pool.SetState(storage.NewPoolState(db, "token"))
	pool.SetBank(ledgers)
	pool.SetAuthority(allowlist)
	pool.SetPauses(pauses)
	pool.SetEmitter(observability.NewObserver(stakeAsset.Hex(), logger, nil))

	if sc.RewardRate != "" {
		rate, err := config.ParseAmount(sc.RewardRate)
		if err != nil {
			return nil, err
		}
		if err := pool.SetRewardRate(owner, rate); err != nil {
			return nil, err
		}
	}
	if sc.StakingPeriod > 0 {
		if err := pool.SetStakingPeriod(owner, sc.StakingPeriod); err != nil {
			return nil, err
		}
	}
	if sc.EarlyWithdrawalFeePercent > 0 {
		if err := pool.SetEarlyWithdrawalFee(owner, sc.EarlyWithdrawalFeePercent); err != nil {
			return nil, err
		}
	}
	return pool, nil
}

func buildNFTPool(sc config.StakingConfig, db storage.Database, ledgers *bank.Bank, allowlist *auth.Allowlist, pauses nativecommon.PauseView, owner common.Address, logger *slog.Logger) (*staking.NFTPool, error) {
	rewardAsset, err := config.ParseAddress(sc.RewardAsset)
	if err != nil {
		return nil, err
	}
	poolAddress, err := config.ParseAddress(sc.PoolAddress)
	if err != nil {
		return nil, err
	}

	pool := staking.NewNFTPool(rewardAsset, poolAddress)
	pool.SetState(storage.NewPoolState(db, "nft"))
	pool.SetCustody(custody.NewRegistry())
	pool.SetBank(ledgers)
	pool.SetAuthority(allowlist)
	pool.SetPauses(pauses)
	pool.SetEmitter(observability.NewObserver(rewardAsset.Hex(), logger, nil))

	if sc.RewardRate != "" {
		rate, err := config.ParseAmount(sc.RewardRate)
		if err != nil {
			return nil, err
		}
		if err := pool.SetRewardRate(owner, rate); err != nil {
			return nil, err
		}
	}
	return pool, nil
}

func buildSale(sc config.SaleConfig, db storage.Database, ledgers *bank.Bank, allowlist *auth.Allowlist, pauses nativecommon.PauseView, logger *slog.Logger) (*sale.Engine, common.Address, error) {
	paymentAsset, err := config.ParseAddress(sc.PaymentAsset)
	if err != nil {
		return nil, common.Address{}, err
	}
	saleAsset, err := config.ParseAddress(sc.SaleAsset)
	if err != nil {
		return nil, common.Address{}, err
	}
	saleAddress, err := config.ParseAddress(sc.SaleAddress)
	if err != nil {
		return nil, common.Address{}, err
	}
	price, err := config.ParseAmount(sc.TokenPrice)
	if err != nil {
		return nil, common.Address{}, err
	}
	limit, err := config.ParseAmount(sc.PurchaseLimit)
	if err != nil {
		return nil, common.Address{}, err
	}
	cap, err := config.ParseAmount(sc.Cap)
	if err != nil {
		return nil, common.Address{}, err
	}

	engine := sale.NewEngine(paymentAsset, saleAsset, saleAddress)
	engine.SetState(storage.NewSaleState(db))
	engine.SetBank(ledgers)
	engine.SetAuthority(allowlist)
	engine.SetPauses(pauses)
	engine.SetEmitter(observability.NewObserver(saleAsset.Hex(), logger, nil))
	if err := engine.Init(sale.Sale{
		StartTime:       sc.StartTime,
		EndTime:         sc.EndTime,
		TokenPrice:      price,
		PurchaseLimit:   limit,
		Cap:             cap,
		StartRelease:    sc.StartRelease,
		CliffDuration:   sc.CliffDuration,
		VestingDuration: sc.VestingDuration,
		TGEPercent:      sc.TGEPercent,
	}); err != nil {
		return nil, common.Address{}, fmt.Errorf("init sale: %w", err)
	}
	return engine, saleAddress, nil
}

func serveMetrics(address string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	server := &http.Server{Addr: address, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics listening", slog.String("address", address))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		logger.Info("shutdown complete")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
