package state

import "encoding/binary"

// composeKey joins a key prefix with raw segments. Fixed-width numeric
// segments keep per-record keys unique without separators.
func composeKey(prefix []byte, segments ...[]byte) []byte {
	key := append([]byte(nil), prefix...)
	for _, segment := range segments {
		key = append(key, segment...)
	}
	return key
}

func uint64Segment(v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return buf[:]
}
