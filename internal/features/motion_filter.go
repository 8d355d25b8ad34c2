package features

// MotionFilter はマウスによるタッチの座標を滑らかにします
type MotionFilter struct {
	smoothingFactor float64 // 0.0-1.0の範囲。1.0に近いほど滑らかになりますが、遅延が大きくなります
	lastX           float64
	lastY           float64
	warmUpCount     int
	currentCount    int
}

// 新しいモーションフィルターを作成します。smoothingFactor が 0 の場合は何もしません
func NewMotionFilter(smoothingFactor float64, warmUpCount int) *MotionFilter {
	return &MotionFilter{
		smoothingFactor: smoothingFactor,
		warmUpCount:     warmUpCount,
	}
}

// 座標に smoothing を適用します
func (mf *MotionFilter) Filter(x, y int) (int, int) {
	// 押下直後は入力をそのまま使う
	if mf.currentCount <= mf.warmUpCount || mf.smoothingFactor <= 0 {
		mf.currentCount++
		mf.lastX = float64(x)
		mf.lastY = float64(y)
		return x, y
	}

	f := mf.smoothingFactor
	mf.lastX = float64(x)*(1.0-f) + mf.lastX*f
	mf.lastY = float64(y)*(1.0-f) + mf.lastY*f
	return int(mf.lastX + 0.5), int(mf.lastY + 0.5)
}

// フィルターの状態をリセットします。指を離したときに呼びます
func (mf *MotionFilter) Reset() {
	mf.lastX = 0
	mf.lastY = 0
	mf.currentCount = 0
}
