package motor

// Little-endian field packing for the fixed 8-byte Gyems command frames.

func putInt16(data []byte, off int, v int16) {
	data[off] = byte(v)
	data[off+1] = byte(v >> 8)
}

func getInt16(data []byte, off int) int16 {
	return int16(uint16(data[off]) | uint16(data[off+1])<<8)
}

// getInt56 decodes the 7-byte signed angle field of the multi-turn angle
// reply (0.01 deg/LSB).
func getInt56(data []byte, off int) int64 {
	var u uint64
	for i := 0; i < 7; i++ {
		u |= uint64(data[off+i]) << (8 * i)
	}
	signBit := uint64(1) << 55
	if u&signBit != 0 {
		u |= 0xFF << 56
	}
	return int64(u)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
