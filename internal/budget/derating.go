package budget

import (
	"math"

	"github.com/roman-kulish/link-budget/internal/snr"
)

// effectiveThroughput applies the derating policy. Every policy returns
// targetBps unchanged once the operating SNR meets the requirement.
func effectiveThroughput(d Derating, targetBps, bandwidthHz, operatingDB, requiredDB float64) float64 {
	if operatingDB >= requiredDB {
		return targetBps
	}

	switch d {
	case DeratingNone:
		return targetBps
	case DeratingCapacity:
		capacity := bandwidthHz * math.Log2(1+snr.FromDB(operatingDB))
		return math.Min(targetBps, capacity)
	default:
		return targetBps * linearDerating(operatingDB, requiredDB)
	}
}

// linearDerating returns operating/required as a fraction in [0, 1]. A ratio
// of dB values only makes sense when both are positive; otherwise the ratio of
// linear powers is used, so a harder requirement never yields more throughput
// at the same operating SNR.
func linearDerating(operatingDB, requiredDB float64) float64 {
	var ratio float64
	if requiredDB > 0 && operatingDB > 0 {
		ratio = operatingDB / requiredDB
	} else {
		ratio = snr.FromDB(operatingDB - requiredDB)
	}
	return math.Max(0, math.Min(1, ratio))
}
