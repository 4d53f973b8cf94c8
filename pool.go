package clreplay

import (
	"fmt"
	"math"
	"math/big"

	"github.com/daoleno/uniswapv3-sdk/constants"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var feeRateDivisor = decimal.NewFromInt(feeRateScale)

// PoolConfig holds the immutable pool parameters (spec §3), generalizing
// the teacher's PoolConfig (pool.go) with the rational fee-rate fields
// spec §6 describes as ppm integers scaled by 1e-6.
type PoolConfig struct {
	Token0          common.Address
	Token1          common.Address
	PoolAddress     common.Address
	FeePPM          int64 // fee, parts-per-million
	ProtocolFeePPM  int64 // protocolFee, parts-per-million, default 0
	TickSpacing     int
}

// FeeRate returns the configured fee as a rational in [0, 1).
func (c PoolConfig) FeeRate() decimal.Decimal {
	return decimal.NewFromInt(c.FeePPM).Div(feeRateDivisor)
}

// ProtocolFeeRate returns the configured protocol fee as a rational in [0, 1).
func (c PoolConfig) ProtocolFeeRate() decimal.Decimal {
	return decimal.NewFromInt(c.ProtocolFeePPM).Div(feeRateDivisor)
}

// Pool is the mutable pool state plus its immutable config, the positions it
// owns exclusively, and its append-only per-kind event logs (spec §3, §5).
type Pool struct {
	Config PoolConfig

	sqrtPrice    float64
	sqrtPriceX96 *big.Int
	tick         int
	liquidity    float64
	totalFee0    float64
	totalFee1    float64
	initialized  bool

	Positions *PositionStore

	initLog    []InitializeEvent
	mintLog    []MintEvent
	burnLog    []BurnEvent
	collectLog []CollectEvent
	swapLog    []SwapEvent
}

// NewPool constructs an uninitialized pool for the given config. If the
// fee tier matches one of the ecosystem's recognized tiers (daoleno
// uniswapv3-sdk's FeeAmount/TickSpacings table) but tickSpacing doesn't
// match the canonical spacing for that tier, a warning is logged — pools
// with non-canonical spacing are still legal off-chain test fixtures.
func NewPool(config PoolConfig) *Pool {
	if spacing, ok := canonicalTickSpacing(config.FeePPM); ok && spacing != config.TickSpacing {
		logrus.Warnf("pool fee %d does not use its canonical tick spacing (got %d, expected %d)", config.FeePPM, config.TickSpacing, spacing)
	}
	return &Pool{
		Config:    config,
		Positions: NewPositionStore(),
	}
}

func canonicalTickSpacing(feePPM int64) (int, bool) {
	switch constants.FeeAmount(feePPM) {
	case constants.FeeAmount500:
		return 10, true
	case constants.FeeAmount3000:
		return 60, true
	case constants.FeeAmount10000:
		return 200, true
	default:
		return 0, false
	}
}

// Tick returns the pool's current tick.
func (p *Pool) Tick() int { return p.tick }

// SqrtPrice returns the pool's current sqrtPrice.
func (p *Pool) SqrtPrice() float64 { return p.sqrtPrice }

// Liquidity returns the pool's current in-range liquidity.
func (p *Pool) Liquidity() float64 { return p.liquidity }

// TotalFees returns the cumulative swap fees taken from inputs (spec §3).
func (p *Pool) TotalFees() (float64, float64) { return p.totalFee0, p.totalFee1 }

// Price returns sqrtPrice^2 (spec §4.1, §6).
func (p *Pool) Price() float64 { return Price(p.sqrtPrice) }

// Initialize implements spec §4.3's Initialize handler: set sqrtPrice from
// whichever of {sqrtPrice, sqrtPriceX96, price} is supplied, deriving the
// others, and validate an optional supplied tick.
func (p *Pool) Initialize(evt InitializeEvent) error {
	if p.initialized {
		return ErrAlreadyInitialized
	}

	var sqrtPrice float64
	var sqrtPriceX96 *big.Int
	switch {
	case evt.Price != nil:
		sqrtPrice = math.Sqrt(*evt.Price)
		sqrtPriceX96 = SqrtPriceToSqrtPriceX96(sqrtPrice)
	case evt.SqrtPriceX96 != nil:
		sqrtPriceX96 = evt.SqrtPriceX96
		sqrtPrice = SqrtPriceX96ToSqrtPrice(sqrtPriceX96)
	case evt.SqrtPrice != nil:
		sqrtPrice = *evt.SqrtPrice
		sqrtPriceX96 = SqrtPriceToSqrtPriceX96(sqrtPrice)
	default:
		return fmt.Errorf("Initialize: need a sqrtPrice, price, or sqrtPriceX96: %w", ErrIncorrectInput)
	}

	derivedTick := TickOf(sqrtPrice)
	if evt.Tick != nil {
		if *evt.Tick != derivedTick {
			if evt.Warn {
				logrus.Warnf("Initialize: supplied tick %d does not match derived tick %d", *evt.Tick, derivedTick)
			} else {
				return fmt.Errorf("Initialize: supplied tick %d does not match derived tick %d: %w", *evt.Tick, derivedTick, ErrTickPriceMisaligned)
			}
		}
		p.tick = *evt.Tick
	} else {
		p.tick = derivedTick
	}

	p.sqrtPrice = sqrtPrice
	p.sqrtPriceX96 = sqrtPriceX96
	p.initialized = true
	p.initLog = append(p.initLog, evt)
	exactTickAtSqrtPriceX96(sqrtPriceX96, p.tick)
	return nil
}

// Mint implements spec §4.3's Mint handler: delegate to the position store,
// then recompute pool liquidity from in-range positions.
func (p *Pool) Mint(evt MintEvent) error {
	amount, _ := evt.Amount.Float64()
	amount0, _ := evt.Amount0.Float64()
	amount1, _ := evt.Amount1.Float64()

	if _, err := p.Positions.UpsertMint(evt.TokenID, evt.TickLower, evt.TickUpper, amount, amount0, amount1, evt.Sender, evt.Coords()); err != nil {
		return err
	}
	p.liquidity = p.Positions.InRangeLiquidity(p.tick)
	p.mintLog = append(p.mintLog, evt)
	return nil
}

// Burn implements spec §4.3's Burn handler: delegate to the position store;
// pool liquidity is recomputed on the next swap, not here, since a burn
// typically targets a range outside the active tick.
func (p *Pool) Burn(evt BurnEvent) error {
	amount, _ := evt.Amount.Float64()
	amount0, _ := evt.Amount0.Float64()
	amount1, _ := evt.Amount1.Float64()

	if err := p.Positions.ApplyBurn(evt.TokenID, amount, amount0, amount1, evt.Coords()); err != nil {
		return err
	}
	p.burnLog = append(p.burnLog, evt)
	return nil
}

// Collect implements spec §4.3's Collect handler: delegate, then refresh
// holdings for the position.
func (p *Pool) Collect(evt CollectEvent) error {
	amount0, _ := evt.Amount0.Float64()
	amount1, _ := evt.Amount1.Float64()

	if err := p.Positions.ApplyCollect(evt.TokenID, amount0, amount1, p.sqrtPrice, evt.Coords()); err != nil {
		return err
	}
	p.collectLog = append(p.collectLog, evt)
	return nil
}

// AuditFeeConservation operationalizes the reserved FeeMismatch error kind
// (spec §7) and invariant P5 (spec §8): the sum of accrued fees across all
// positions must equal the pool's running fee totals within a fixed absolute
// tolerance of 1e-6 per token; the bound is not scaled by ulp or by the
// number of positions.
func (p *Pool) AuditFeeConservation() error {
	var sum0, sum1 float64
	for _, pos := range p.Positions.All() {
		sum0 += pos.Token0FeesAccrued
		sum1 += pos.Token1FeesAccrued
	}
	const ulp = 1e-6
	if diff := sum0 - p.totalFee0; diff > ulp || diff < -ulp {
		return fmt.Errorf("token0 fees accrued %g != totalFee0 %g: %w", sum0, p.totalFee0, ErrFeeMismatch)
	}
	if diff := sum1 - p.totalFee1; diff > ulp || diff < -ulp {
		return fmt.Errorf("token1 fees accrued %g != totalFee1 %g: %w", sum1, p.totalFee1, ErrFeeMismatch)
	}
	return nil
}
