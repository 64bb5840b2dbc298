// Package crc16 implements the device checksum: CRC-16 with polynomial
// 0x1021, zero initial value, MSB first (XMODEM).
package crc16

const poly = 0x1021

var table = makeTable()

func makeTable() [256]uint16 {
	var t [256]uint16
	for i := range t {
		crc := uint16(i) << 8
		for b := 0; b < 8; b++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ poly
			} else {
				crc <<= 1
			}
		}
		t[i] = crc
	}
	return t
}

func Update(crc uint16, b []byte) uint16 {
	for _, x := range b {
		crc = crc<<8 ^ table[byte(crc>>8)^x]
	}
	return crc
}

func Checksum(b []byte) uint16 {
	return Update(0, b)
}

// Range checksums n bytes of b starting at off.
func Range(b []byte, off, n int) uint16 {
	return Checksum(b[off : off+n])
}
