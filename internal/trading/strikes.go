// Package trading provides the straddle execution core: strike
// selection, order planning, leg coordination, and reconciliation.
package trading

import (
	"math"
	"time"

	apperrors "straddle-trader/internal/errors"
	"straddle-trader/internal/models"
)

// SelectATMStrikes picks the strike pair nearest to spot from a chain
// snapshot. On an exact distance tie the lower strike wins, so
// selection is deterministic and reproducible. maxDevPct bounds the
// accepted deviation as a fraction of spot; it guards against stale or
// sparse chains. Side-effect-free.
func SelectATMStrikes(snapshot *models.OptionChainSnapshot, spot float64, maxDevPct float64) (*models.StrikePair, error) {
	if snapshot == nil || len(snapshot.Strikes) == 0 {
		return nil, apperrors.ErrNoChainAvailable
	}
	if spot <= 0 {
		return nil, apperrors.NewDataError("spot", snapshot.Underlying, "non-positive spot price", apperrors.ErrDataUnavailable)
	}

	best := snapshot.Strikes[0]
	bestDist := math.Abs(best.Strike - spot)
	for _, row := range snapshot.Strikes[1:] {
		dist := math.Abs(row.Strike - spot)
		if dist < bestDist || (dist == bestDist && row.Strike < best.Strike) {
			best = row
			bestDist = dist
		}
	}

	if maxDevPct > 0 && bestDist > spot*maxDevPct {
		return nil, apperrors.Wrapf(apperrors.ErrNoStrikeNearSpot,
			"nearest strike %.0f deviates %.2f from spot %.2f", best.Strike, bestDist, spot)
	}

	return &models.StrikePair{
		Underlying: snapshot.Underlying,
		Expiry:     snapshot.Expiry,
		Strike:     best.Strike,
		CallSymbol: best.CallSymbol,
		PutSymbol:  best.PutSymbol,
	}, nil
}

// CheckSnapshotAge rejects snapshots older than maxAge. Strike
// selection against a stale chain risks picking strikes the exchange
// has already rolled away.
func CheckSnapshotAge(snapshot *models.OptionChainSnapshot, maxAge time.Duration, now time.Time) error {
	if maxAge <= 0 {
		return nil
	}
	if now.Sub(snapshot.FetchedAt) > maxAge {
		return apperrors.ErrStaleChain
	}
	return nil
}
