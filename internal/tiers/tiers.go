package tiers

// Tier is the loyalty standing derived from lifetime completed earnings.
type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

// Half-open thresholds on totalEarned: a tier starts at its lower bound and
// runs up to (not including) the next one.
const (
	SilverThreshold   int64 = 1000
	GoldThreshold     int64 = 2000
	PlatinumThreshold int64 = 3000
)

// Evaluation reports the tier plus how far the shopper is through it.
type Evaluation struct {
	Tier               Tier    `json:"tier"`
	NextTierThreshold  int64   `json:"nextTierThreshold"`
	ProgressToNextTier float64 `json:"progressToNextTier"`
}

// Evaluate derives the tier from lifetime completed earnings. Progress is the
// percentage of the current band already covered, clamped to [0,100];
// Platinum has no next band and always reports 100.
func Evaluate(totalEarned int64) Evaluation {
	if totalEarned < 0 {
		totalEarned = 0
	}

	switch {
	case totalEarned >= PlatinumThreshold:
		return Evaluation{
			Tier:               TierPlatinum,
			NextTierThreshold:  PlatinumThreshold,
			ProgressToNextTier: 100,
		}
	case totalEarned >= GoldThreshold:
		return Evaluation{
			Tier:               TierGold,
			NextTierThreshold:  PlatinumThreshold,
			ProgressToNextTier: progress(totalEarned, GoldThreshold, PlatinumThreshold),
		}
	case totalEarned >= SilverThreshold:
		return Evaluation{
			Tier:               TierSilver,
			NextTierThreshold:  GoldThreshold,
			ProgressToNextTier: progress(totalEarned, SilverThreshold, GoldThreshold),
		}
	default:
		return Evaluation{
			Tier:               TierBronze,
			NextTierThreshold:  SilverThreshold,
			ProgressToNextTier: progress(totalEarned, 0, SilverThreshold),
		}
	}
}

func progress(totalEarned, lower, upper int64) float64 {
	pct := 100 * float64(totalEarned-lower) / float64(upper-lower)
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
