package decay

import (
	"github.com/pthm-cable/verdant/components"
	"github.com/pthm-cable/verdant/fixp"
)

// StageParams holds the kinetics of one decay stage. Rates and yields are
// basis points; the base rate is the share of remaining biomass lost per
// day at full environmental efficiency.
type StageParams struct {
	BaseRateBP     uint64
	OptTemperature int64 // x100
	OptHumidity    uint64
	OptOxygen      uint64
	CompostYieldBP uint64
}

// triangular scores how close value sits to an optimum, in basis points.
// Peaks at 10000 when value equals opt and falls linearly to zero at twice
// the optimum distance (i.e. at 0 and at 2*opt).
func triangular(value, opt uint64) uint64 {
	var diff uint64
	if value > opt {
		diff = value - opt
	} else {
		diff = opt - value
	}
	if diff >= opt {
		return 0
	}
	return fixp.ScaleBP - fixp.MulDiv(diff, fixp.ScaleBP, opt)
}

// triangularSigned is triangular for the signed x100 temperature scale.
func triangularSigned(value, opt int64) uint64 {
	if opt <= 0 {
		return 0
	}
	diff := value - opt
	if diff < 0 {
		diff = -diff
	}
	if diff >= opt {
		return 0
	}
	return fixp.ScaleBP - fixp.MulDiv(uint64(diff), fixp.ScaleBP, uint64(opt))
}

// environmentalEfficiency averages the three condition scores against the
// stage's optima, in basis points.
func environmentalEfficiency(env components.EnvironmentalConditions, sp StageParams) uint64 {
	tempEff := triangularSigned(env.Temperature, sp.OptTemperature)
	humEff := triangular(env.Humidity, sp.OptHumidity)
	oxyEff := triangular(env.Oxygen, sp.OptOxygen)
	return (tempEff + humEff + oxyEff) / 3
}

// microbialModifier maps microbial activity (0..10000) to a rate modifier
// in basis points: 50% activity is neutral, full activity accelerates to
// 1.5x, sterile conditions halve the rate.
func microbialModifier(activity uint64) uint64 {
	return 5000 + activity
}

// effectiveRateBP computes the per-day decay rate for a record under its
// current environment, in basis points.
func effectiveRateBP(env components.EnvironmentalConditions, sp StageParams) uint64 {
	rate := fixp.ApplyBP(sp.BaseRateBP, environmentalEfficiency(env, sp))
	return fixp.ApplyBP(rate, microbialModifier(env.MicrobialActivity))
}

// biomassLost computes the biomass lost over elapsed ticks at rateBP per
// day, clamped to the remaining biomass.
func biomassLost(remaining, rateBP, elapsed, ticksPerDay uint64) uint64 {
	lost := fixp.MulDiv(remaining, fixp.SatMul(rateBP, elapsed), fixp.SatMul(fixp.ScaleBP, ticksPerDay))
	return fixp.Min(lost, remaining)
}

// blendedMicrobialActivity recomputes microbial activity from fresh
// environmental readings: 40% humidity, 30% oxygen, 30% temperature
// comfort around 30 C.
func blendedMicrobialActivity(temperature int64, humidity, oxygen uint64) uint64 {
	const microbialOptTemp = 3000 // 30.00 C
	tempComfort := triangularSigned(temperature, microbialOptTemp)
	return (humidity*40 + oxygen*30 + tempComfort*30) / 100
}
