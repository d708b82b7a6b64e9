// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sen6x

// CalculateCRC computes the Sensirion CRC-8 of data (normally one 2-byte word)
func CalculateCRC(data []byte) uint8 {
	crc := uint8(crcInitial)
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = (crc << 1) ^ crcPolynomial
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

func wordCRC(hi, lo byte) uint8 {
	return CalculateCRC([]byte{hi, lo})
}
