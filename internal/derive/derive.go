// Package derive computes read-only projections of the latest device info.
package derive

import (
	"math"
	"strings"

	"github.com/rickgao/hashwatch/internal/model"
)

// ExpectedHashRate returns the nominal hashrate in GH/s implied by the ASIC
// clock and core counts.
func ExpectedHashRate(info *model.SystemInfo) float64 {
	if info == nil {
		return 0
	}
	return math.Floor(info.Frequency * (float64(info.SmallCoreCount*info.AsicCount) / 1000))
}

// poolDashboards maps a stratum host fragment to its dashboard URL prefix.
var poolDashboards = []struct {
	host   string
	prefix string
}{
	{"public-pool.io", "https://web.public-pool.io/#/app/"},
	{"ocean.xyz", "https://ocean.xyz/stats/"},
	{"solo.d-central.tech", "https://solo.d-central.tech/#/app/"},
	{"solo.ckpool.org", "https://solostats.ckpool.org/stats/"},
}

// PoolURL returns the pool's stats page for the configured payout address,
// or "" for unknown pools.
func PoolURL(info *model.SystemInfo) string {
	if info == nil {
		return ""
	}
	address, _, _ := strings.Cut(info.StratumUser, ".")
	for _, p := range poolDashboards {
		if strings.Contains(info.StratumURL, p.host) {
			return p.prefix + address
		}
	}
	return ""
}
