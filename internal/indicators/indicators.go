package indicators

import (
	"math"

	"signal-advisor/internal/market"
)

// Frame is price history augmented with the indicator values the analyzers
// read. It is computed once per decision cycle and never mutated afterwards.
// Each indicator group carries a Has* flag: when history is too short for a
// group, the group fails closed (flag false, zero values) instead of erroring.
type Frame struct {
	Klines []market.Kline

	// Momentum
	RSI      float64
	HasRSI   bool
	StochK   float64
	StochD   float64
	HasStoch bool

	// Trend
	EMA12          float64
	EMA26          float64
	PrevEMA12      float64
	PrevEMA26      float64
	HasEMA         bool
	MACD           float64
	MACDSignal     float64
	PrevMACD       float64
	PrevMACDSignal float64
	HasMACD        bool
	ADX            float64
	PlusDI         float64
	MinusDI        float64
	HasADX         bool

	// Volatility
	BBUpper  float64
	BBMiddle float64
	BBLower  float64
	HasBB    bool
	ATR      float64
	HasATR   bool

	// Volume
	OBV         float64
	OBVTrend    float64 // Mean change of OBV over the last 5 bars
	VolumeMA    float64
	VolumeRatio float64
	VWAP        float64
	HasVolume   bool

	// Candlestick pattern flags on the latest bar
	Hammer           bool
	ShootingStar     bool
	BullishEngulfing bool
	BearishEngulfing bool
}

// Bars returns the number of bars in the frame.
func (f *Frame) Bars() int {
	return len(f.Klines)
}

// LastClose returns the close of the latest bar, or 0 for an empty frame.
func (f *Frame) LastClose() float64 {
	if len(f.Klines) == 0 {
		return 0
	}
	return f.Klines[len(f.Klines)-1].Close
}

// Compute builds an indicator frame from price history. It never fails:
// indicator groups that cannot be computed from the available bars are left
// unset with their Has* flag false.
func Compute(klines []market.Kline) *Frame {
	f := &Frame{Klines: klines}
	n := len(klines)
	if n == 0 {
		return f
	}

	closes := make([]float64, n)
	for i, k := range klines {
		closes[i] = k.Close
	}

	// RSI 14
	if rsi, ok := rsiAt(closes, 14); ok {
		f.RSI = rsi
		f.HasRSI = true
	}

	// EMA 12/26 with previous-bar values for crossover detection
	ema12 := emaSeries(closes, 12)
	ema26 := emaSeries(closes, 26)
	if ema12 != nil && ema26 != nil && n >= 27 {
		f.EMA12 = ema12[n-1]
		f.EMA26 = ema26[n-1]
		f.PrevEMA12 = ema12[n-2]
		f.PrevEMA26 = ema26[n-2]
		f.HasEMA = true
	}

	// MACD 12/26/9
	if macd, sig := macdSeries(closes, 12, 26, 9); macd != nil && n >= 35 {
		f.MACD = macd[n-1]
		f.MACDSignal = sig[n-1]
		f.PrevMACD = macd[n-2]
		f.PrevMACDSignal = sig[n-2]
		f.HasMACD = true
	}

	// Bollinger 20/2
	if n >= 20 {
		mid, std := meanStd(closes[n-20:])
		f.BBMiddle = mid
		f.BBUpper = mid + 2*std
		f.BBLower = mid - 2*std
		f.HasBB = true
	}

	// Stochastic 14/3
	if k, d, ok := stochastic(klines, 14, 3); ok {
		f.StochK = k
		f.StochD = d
		f.HasStoch = true
	}

	// ADX 14 with directional indexes
	if adx, plus, minus, ok := adx(klines, 14); ok {
		f.ADX = adx
		f.PlusDI = plus
		f.MinusDI = minus
		f.HasADX = true
	}

	// ATR 14
	if atr, ok := atr(klines, 14); ok {
		f.ATR = atr
		f.HasATR = true
	}

	// Volume series
	if n >= 20 {
		sum := 0.0
		for i := n - 20; i < n; i++ {
			sum += klines[i].Volume
		}
		f.VolumeMA = sum / 20
		if f.VolumeMA > 0 {
			f.VolumeRatio = klines[n-1].Volume / f.VolumeMA
		}
		f.HasVolume = true
	}

	obv := obvSeries(klines)
	f.OBV = obv[n-1]
	if n >= 6 {
		f.OBVTrend = (obv[n-1] - obv[n-6]) / 5
	}
	f.VWAP = vwap(klines)

	// Candlestick patterns on the latest bar
	last := klines[n-1]
	f.Hammer = isHammer(last)
	f.ShootingStar = isShootingStar(last)
	if n >= 2 {
		prev := klines[n-2]
		f.BullishEngulfing = isBullishEngulfing(prev, last)
		f.BearishEngulfing = isBearishEngulfing(prev, last)
	}

	return f
}

// rsiAt computes RSI with Wilder smoothing over the full history.
func rsiAt(closes []float64, period int) (float64, bool) {
	if len(closes) < period+1 {
		return 0, false
	}

	gains := 0.0
	losses := 0.0
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs)), true
}

// emaSeries returns the EMA series, or nil when history is too short.
// Entries before the first full period are seeded with the running SMA.
func emaSeries(values []float64, period int) []float64 {
	if len(values) < period {
		return nil
	}

	out := make([]float64, len(values))
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
		out[i] = sum / float64(i+1)
	}

	multiplier := 2.0 / float64(period+1)
	ema := sum / float64(period)
	out[period-1] = ema
	for i := period; i < len(values); i++ {
		ema = values[i]*multiplier + ema*(1-multiplier)
		out[i] = ema
	}

	return out
}

// macdSeries returns the MACD and signal line series.
func macdSeries(closes []float64, fast, slow, signal int) ([]float64, []float64) {
	fastEMA := emaSeries(closes, fast)
	slowEMA := emaSeries(closes, slow)
	if fastEMA == nil || slowEMA == nil {
		return nil, nil
	}

	macd := make([]float64, len(closes))
	for i := range closes {
		macd[i] = fastEMA[i] - slowEMA[i]
	}

	sig := emaSeries(macd, signal)
	if sig == nil {
		return nil, nil
	}

	return macd, sig
}

func meanStd(values []float64) (float64, float64) {
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))

	return mean, math.Sqrt(variance)
}

// stochastic computes %K over kPeriod and %D as an SMA(dPeriod) of %K.
func stochastic(klines []market.Kline, kPeriod, dPeriod int) (float64, float64, bool) {
	n := len(klines)
	if n < kPeriod+dPeriod-1 {
		return 0, 0, false
	}

	kValues := make([]float64, dPeriod)
	for j := 0; j < dPeriod; j++ {
		end := n - dPeriod + 1 + j
		window := klines[end-kPeriod : end]

		lowest := window[0].Low
		highest := window[0].High
		for _, k := range window {
			if k.Low < lowest {
				lowest = k.Low
			}
			if k.High > highest {
				highest = k.High
			}
		}

		spread := highest - lowest
		if spread == 0 {
			kValues[j] = 50
		} else {
			kValues[j] = 100 * (window[kPeriod-1].Close - lowest) / spread
		}
	}

	k := kValues[dPeriod-1]
	d := 0.0
	for _, v := range kValues {
		d += v
	}
	d /= float64(dPeriod)

	return k, d, true
}

func trueRange(curr, prev market.Kline) float64 {
	tr := curr.High - curr.Low
	if hc := math.Abs(curr.High - prev.Close); hc > tr {
		tr = hc
	}
	if lc := math.Abs(curr.Low - prev.Close); lc > tr {
		tr = lc
	}
	return tr
}

// atr computes the Average True Range with Wilder smoothing.
func atr(klines []market.Kline, period int) (float64, bool) {
	if len(klines) < period+1 {
		return 0, false
	}

	sum := 0.0
	for i := 1; i <= period; i++ {
		sum += trueRange(klines[i], klines[i-1])
	}
	value := sum / float64(period)

	for i := period + 1; i < len(klines); i++ {
		tr := trueRange(klines[i], klines[i-1])
		value = (value*float64(period-1) + tr) / float64(period)
	}

	return value, true
}

// adx computes the Average Directional Index and the +DI/-DI pair.
func adx(klines []market.Kline, period int) (float64, float64, float64, bool) {
	if len(klines) < 2*period+1 {
		return 0, 0, 0, false
	}

	var smTR, smPlusDM, smMinusDM float64
	dxValues := make([]float64, 0, len(klines))

	for i := 1; i < len(klines); i++ {
		upMove := klines[i].High - klines[i-1].High
		downMove := klines[i-1].Low - klines[i].Low

		plusDM, minusDM := 0.0, 0.0
		if upMove > downMove && upMove > 0 {
			plusDM = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM = downMove
		}
		tr := trueRange(klines[i], klines[i-1])

		if i <= period {
			smTR += tr
			smPlusDM += plusDM
			smMinusDM += minusDM
			if i < period {
				continue
			}
		} else {
			smTR = smTR - smTR/float64(period) + tr
			smPlusDM = smPlusDM - smPlusDM/float64(period) + plusDM
			smMinusDM = smMinusDM - smMinusDM/float64(period) + minusDM
		}

		if smTR == 0 {
			dxValues = append(dxValues, 0)
			continue
		}
		plusDI := 100 * smPlusDM / smTR
		minusDI := 100 * smMinusDM / smTR
		sum := plusDI + minusDI
		if sum == 0 {
			dxValues = append(dxValues, 0)
			continue
		}
		dxValues = append(dxValues, 100*math.Abs(plusDI-minusDI)/sum)
	}

	if len(dxValues) < period {
		return 0, 0, 0, false
	}

	adxValue := 0.0
	for _, v := range dxValues[:period] {
		adxValue += v
	}
	adxValue /= float64(period)
	for _, v := range dxValues[period:] {
		adxValue = (adxValue*float64(period-1) + v) / float64(period)
	}

	plusDI := 0.0
	minusDI := 0.0
	if smTR > 0 {
		plusDI = 100 * smPlusDM / smTR
		minusDI = 100 * smMinusDM / smTR
	}

	return adxValue, plusDI, minusDI, true
}

// obvSeries computes the On-Balance Volume running accumulator.
func obvSeries(klines []market.Kline) []float64 {
	out := make([]float64, len(klines))
	for i := 1; i < len(klines); i++ {
		out[i] = out[i-1]
		if klines[i].Close > klines[i-1].Close {
			out[i] += klines[i].Volume
		} else if klines[i].Close < klines[i-1].Close {
			out[i] -= klines[i].Volume
		}
	}
	return out
}

// vwap computes the volume-weighted average price over the full window.
func vwap(klines []market.Kline) float64 {
	totalPV := 0.0
	totalV := 0.0
	for _, k := range klines {
		typical := (k.High + k.Low + k.Close) / 3
		totalPV += typical * k.Volume
		totalV += k.Volume
	}
	if totalV == 0 {
		return 0
	}
	return totalPV / totalV
}

func isHammer(k market.Kline) bool {
	body := math.Abs(k.Close - k.Open)
	total := k.High - k.Low
	if total == 0 {
		return false
	}
	upper := k.High - math.Max(k.Open, k.Close)
	lower := math.Min(k.Open, k.Close) - k.Low

	return lower > 2*body && upper < 0.3*body && body > 0.1*total
}

func isShootingStar(k market.Kline) bool {
	body := math.Abs(k.Close - k.Open)
	total := k.High - k.Low
	if total == 0 {
		return false
	}
	upper := k.High - math.Max(k.Open, k.Close)
	lower := math.Min(k.Open, k.Close) - k.Low

	return upper > 2*body && lower < 0.3*body && body > 0.1*total
}

func isBullishEngulfing(prev, curr market.Kline) bool {
	return curr.Close > curr.Open &&
		prev.Close < prev.Open &&
		curr.Open < prev.Close &&
		curr.Close > prev.Open
}

func isBearishEngulfing(prev, curr market.Kline) bool {
	return curr.Close < curr.Open &&
		prev.Close > prev.Open &&
		curr.Open > prev.Close &&
		curr.Close < prev.Open
}
