package main

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/car-price-checker/internal/catalog"
	"github.com/sells-group/car-price-checker/internal/checker"
	"github.com/sells-group/car-price-checker/internal/intake"
	"github.com/sells-group/car-price-checker/internal/listings"
	"github.com/sells-group/car-price-checker/internal/monitoring"
	"github.com/sells-group/car-price-checker/internal/pricing"
	"github.com/sells-group/car-price-checker/internal/resilience"
	"github.com/sells-group/car-price-checker/pkg/marketcheck"
)

// checkEnv holds everything the serve, check, and batch commands need to
// price a vehicle.
type checkEnv struct {
	Service   *checker.Service
	Parser    *intake.Parser
	Catalog   *catalog.Catalog
	Source    listings.Source
	Breaker   *resilience.CircuitBreaker // nil unless the API is used
	Alerter   *monitoring.Alerter
	Collector *monitoring.Collector
}

// Close waits for in-flight alerts.
func (e *checkEnv) Close() {
	e.Alerter.Wait()
}

// initCheck validates config for mode and wires the listing source, the
// evaluator, and the check service. offline overrides marketcheck.offline_file.
// Callers should defer env.Close().
func initCheck(ctx context.Context, mode, offline string) (*checkEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	alerter := monitoring.NewAlerter(cfg.Monitoring)

	if offline == "" {
		offline = cfg.MarketCheck.OfflineFile
	}

	var (
		source  listings.Source
		breaker *resilience.CircuitBreaker
	)
	switch {
	case offline != "":
		fs, err := listings.NewFileSource(ctx, offline)
		if err != nil {
			return nil, err
		}
		zap.L().Info("using offline listings",
			zap.String("path", offline),
			zap.Int("listings", fs.Len()),
		)
		source = fs
	case cfg.MarketCheck.Key != "":
		bcfg := resilience.FromCircuitConfig("marketcheck", cfg.Circuit.FailureThreshold, cfg.Circuit.ResetTimeoutSecs)
		bcfg.OnStateChange = func(name string, from, to resilience.CircuitState) {
			zap.L().Warn("circuit state change",
				zap.String("circuit", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if to == resilience.CircuitOpen {
				alerter.CircuitOpened(name)
			}
		}
		breaker = resilience.NewCircuitBreaker(bcfg)

		client := marketcheck.NewClient(cfg.MarketCheck.Key,
			marketcheck.WithBaseURL(cfg.MarketCheck.BaseURL),
			marketcheck.WithLegacyBaseURL(cfg.MarketCheck.LegacyBaseURL),
			marketcheck.WithRateLimit(cfg.MarketCheck.RequestsPerSecond),
			marketcheck.WithDefaults(cfg.MarketCheck.Rows, cfg.MarketCheck.Radius),
			marketcheck.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.MarketCheck.TimeoutSecs) * time.Second}),
		)
		source = listings.NewMarketCheckSource(client, breaker, cfg.MarketCheck.Radius)
	default:
		zap.L().Warn("PRICECHECK_MARKETCHECK_KEY not set and no offline file, serving synthetic estimates")
		source = listings.Unconfigured{}
	}

	collector := monitoring.NewCollector(breaker)

	eval := pricing.NewEvaluator(pricing.Options{
		MileageBand: cfg.Evaluate.MileageBand,
		FairBand:    cfg.Evaluate.FairBand,
	}, time.Now, pricing.NewLockedSource(cfg.Evaluate.Seed))

	svc := checker.New(source, eval,
		checker.WithTimeout(time.Duration(cfg.MarketCheck.TimeoutSecs)*time.Second),
		checker.WithSynthesizeOnEmpty(cfg.Evaluate.SynthesizeOnEmpty),
		checker.WithAlerter(alerter),
		checker.WithCollector(collector),
	)

	cat := catalog.Default()

	return &checkEnv{
		Service:   svc,
		Parser:    intake.NewParser(cat, time.Now),
		Catalog:   cat,
		Source:    source,
		Breaker:   breaker,
		Alerter:   alerter,
		Collector: collector,
	}, nil
}
