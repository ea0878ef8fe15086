package common

import "encoding/hex"

// AddrHex renders an address for event attributes and log fields.
func AddrHex(addr [20]byte) string {
	return hex.EncodeToString(addr[:])
}

// ZeroAddress reports whether the address is unset.
func ZeroAddress(addr [20]byte) bool {
	return addr == [20]byte{}
}
