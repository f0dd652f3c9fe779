package analysis

import (
	"fmt"
	"math"

	"signal-advisor/internal/indicators"
)

// volumeSpikeThreshold is the ratio of current volume to its rolling average
// above which volume counts as confirmation of the prevailing move.
const volumeSpikeThreshold = 1.5

// vwapOffsetThreshold is the minimum relative distance from VWAP before the
// offset is treated as a directional nudge rather than noise.
const vwapOffsetThreshold = 0.002

// AnalyzeVolume inspects volume behavior: spike ratio against the rolling
// average, the trend of the OBV accumulator, position relative to the
// highest-volume price node, and the offset from VWAP. Rules are evaluated in
// that order and the first that fires decides the opinion.
func AnalyzeVolume(frame *indicators.Frame) PartialAnalysis {
	if frame == nil || frame.Bars() == 0 || !frame.HasVolume {
		return HoldAnalysis("insufficient volume history")
	}

	metrics := map[string]float64{
		"volume_ratio": frame.VolumeRatio,
		"obv_trend":    frame.OBVTrend,
	}

	// Volume spike confirms whatever the other analyzers see
	if frame.VolumeRatio > volumeSpikeThreshold {
		return PartialAnalysis{
			Direction:  Confirm,
			Confidence: min(frame.VolumeRatio/3.0, 0.8),
			Reasons:    []string{fmt.Sprintf("High volume confirmation (ratio: %.1f)", frame.VolumeRatio)},
			Metrics:    metrics,
		}
	}

	// OBV accumulator trend
	if frame.OBVTrend > 0 {
		return PartialAnalysis{
			Direction:  Buy,
			Confidence: 0.4,
			Reasons:    []string{"OBV showing accumulation"},
			Metrics:    metrics,
		}
	}
	if frame.OBVTrend < 0 {
		return PartialAnalysis{
			Direction:  Sell,
			Confidence: 0.4,
			Reasons:    []string{"OBV showing distribution"},
			Metrics:    metrics,
		}
	}

	// Position relative to the highest-volume price node
	if node, ok := highVolumeNode(frame); ok {
		close := frame.LastClose()
		if close > node*1.005 {
			return PartialAnalysis{
				Direction:  Buy,
				Confidence: 0.3,
				Reasons:    []string{fmt.Sprintf("Price holding above high-volume node %.2f", node)},
				Metrics:    metrics,
			}
		}
		if close < node*0.995 {
			return PartialAnalysis{
				Direction:  Sell,
				Confidence: 0.3,
				Reasons:    []string{fmt.Sprintf("Price rejected below high-volume node %.2f", node)},
				Metrics:    metrics,
			}
		}
	}

	// VWAP offset
	if frame.VWAP > 0 {
		offset := (frame.LastClose() - frame.VWAP) / frame.VWAP
		if math.Abs(offset) > vwapOffsetThreshold {
			if offset > 0 {
				return PartialAnalysis{
					Direction:  Buy,
					Confidence: 0.3,
					Reasons:    []string{fmt.Sprintf("Price %.2f%% above VWAP", offset*100)},
					Metrics:    metrics,
				}
			}
			return PartialAnalysis{
				Direction:  Sell,
				Confidence: 0.3,
				Reasons:    []string{fmt.Sprintf("Price %.2f%% below VWAP", -offset*100)},
				Metrics:    metrics,
			}
		}
	}

	return PartialAnalysis{Direction: Hold, Confidence: 0, Reasons: nil, Metrics: metrics}
}

// highVolumeNode returns the typical price of the highest-volume bar in the
// recent window, a cheap stand-in for a volume-profile point of control.
func highVolumeNode(frame *indicators.Frame) (float64, bool) {
	klines := frame.Klines
	window := 50
	if len(klines) < window {
		window = len(klines)
	}
	if window == 0 {
		return 0, false
	}

	best := klines[len(klines)-window]
	for _, k := range klines[len(klines)-window:] {
		if k.Volume > best.Volume {
			best = k
		}
	}

	return (best.High + best.Low + best.Close) / 3, true
}
