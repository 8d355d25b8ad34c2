package mts

// AxisMax は位置軸の仮想レンジの最大値。最小値は 0
const AxisMax = 0x7FFF

// Scale は value を [srcMin, srcMax] から [dstMin, dstMax] へ線形に写像する。
// 計算は 64bit 整数で行い、端数は切り捨てる。
// ソースレンジの幅が 1 未満の場合は出力レンジの中点を返す。
func Scale(value, srcMin, srcMax, dstMin, dstMax int) int {
	if srcMax-srcMin < 1 {
		return dstMin + (dstMax-dstMin)/2
	}
	if value < srcMin {
		value = srcMin
	} else if value > srcMax {
		value = srcMax
	}
	return dstMin + int(int64(value-srcMin)*int64(dstMax-dstMin)/int64(srcMax-srcMin))
}

// scaleToAxis はディスプレイ座標を仮想軸レンジに変換する
func scaleToAxis(value, extent int) int32 {
	return int32(Scale(value, 0, extent-1, 0, AxisMax))
}
