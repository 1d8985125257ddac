package domain

import "context"

// VectorProbe answers whether an independently produced vector tile layer has
// any features for a tile. The audit uses it as a second opinion on coverage:
// where vector data exists but elevation does not, something is likely missing
// from the granule inventory rather than genuinely void.
type VectorProbe interface {
	HasVectorFeatures(ctx context.Context, z, x, y int) (bool, error)
}
