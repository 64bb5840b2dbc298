package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/danmuck/g2ctl/internal/protocol/crc16"
)

// SystemRequest addresses the synth as a whole.
func SystemRequest(data ...byte) []byte {
	return append([]byte{RCmd, CmdRequest + CmdSystem, SysVersion}, data...)
}

// PerfRequest addresses the current performance.
func PerfRequest(perfVersion int, data ...byte) []byte {
	return append([]byte{RCmd, CmdRequest + CmdSystem, byte(perfVersion)}, data...)
}

// SlotRequest addresses one slot and expects a response.
func SlotRequest(slot, version int, data ...byte) []byte {
	return append([]byte{RCmd, byte(CmdRequest + CmdSlot + slot), byte(version)}, data...)
}

// SlotCommand addresses one slot and expects no response.
func SlotCommand(slot, version int, data ...byte) []byte {
	return append([]byte{RCmd, byte(CmdNoResp + CmdSlot + slot), byte(version)}, data...)
}

// SetParam is the slot command for a single parameter value.
func SetParam(slot, version, location, module, param, value, variation int) []byte {
	return SlotCommand(slot, version, TSetParam,
		byte(location), byte(module), byte(param), byte(value), byte(variation))
}

// SelectParam moves the editor focus on the device.
func SelectParam(slot, version, location, module, param int) []byte {
	return SlotCommand(slot, version, TSelectedParam,
		0x00, byte(location), byte(module), byte(param))
}

// SetMorphRange assigns a morph range to a parameter.
func SetMorphRange(slot, version, location, module, param, morph, value, negative, variation int) []byte {
	return SlotCommand(slot, version, TSetMorphRange,
		byte(location), byte(module), byte(param), byte(morph), byte(value), byte(negative), byte(variation))
}

// StartStopComm toggles unsolicited device messages.
func StartStopComm(start bool) []byte {
	flag := byte(0x01)
	if start {
		flag = 0x00
	}
	return SystemRequest(SStartStopComm, flag)
}

// ListNames requests a page of bank entry names.
func ListNames(entryType, bank, entry int) []byte {
	return SystemRequest(QListNames, byte(entryType), byte(bank), byte(entry))
}

// LoadEntry loads a stored bank entry into a slot.
func LoadEntry(slotCode, bank, entry int) []byte {
	return SystemRequest(SRetrieve, byte(slotCode), byte(bank), byte(entry))
}

// EncodeBulk wraps data for a bulk transfer: total size (u16 BE, counting
// itself and the CRC), data, then the CRC of data.
func EncodeBulk(data []byte) ([]byte, error) {
	size := len(data) + 4
	if size > 0xffff {
		return nil, fmt.Errorf("%w: bulk size %d", ErrInvalidLength, size)
	}
	out := make([]byte, 2, size)
	binary.BigEndian.PutUint16(out, uint16(size))
	out = append(out, data...)
	return AppendCRC(out, data), nil
}

// AppendCRC appends the big-endian CRC of covered to buf.
func AppendCRC(buf, covered []byte) []byte {
	return binary.BigEndian.AppendUint16(buf, crc16.Checksum(covered))
}

// FileHeader builds a file header block: each line followed by CRLF, a
// zero byte, then zero padding to size.
func FileHeader(size int, lines ...string) []byte {
	h := make([]byte, 0, size)
	for _, l := range lines {
		h = append(h, l...)
		h = append(h, '\r', '\n')
	}
	h = append(h, 0)
	if len(h) > size {
		panic(fmt.Sprintf("protocol: header of %d bytes exceeds %d", len(h), size))
	}
	return append(h, make([]byte, size-len(h))...)
}

var (
	// PatchFileHeader starts every patch file.
	PatchFileHeader = FileHeader(80,
		"Version=Nord Modular G2 File Format 1",
		"Type=Patch",
		"Version=23",
		"Info=BUILD 320",
	)
	// PerformanceFileHeader starts every performance file.
	PerformanceFileHeader = FileHeader(86,
		"Version=Nord Modular G2 File Format 1",
		"Type=Performance",
		"Version=23",
		"Info=BUILD 320",
	)
)
