package rollout

import (
	"hash/crc32"
	"math"
)

// bucketScale maps one percent onto the 32-bit checksum space.
const bucketScale = float64(math.MaxUint32) / 100.0

// InPercentage reports whether id falls inside the given percentage of the
// CRC-32 (IEEE) checksum space. The result depends only on its inputs, so a
// user admitted at some percentage stays admitted at every higher one.
//
// Percentages are not clamped: values below 0 admit nobody and values above
// 100 admit everybody.
func InPercentage(id string, percentage float64) bool {
	return float64(crc32.ChecksumIEEE([]byte(id))) < percentage*bucketScale
}

// bucketKey returns the string hashed for a user of the named flag.
// With randomize set, the flag name is appended so a user lands in
// different buckets for different flags.
func bucketKey(flagName, id string, randomize bool) string {
	if randomize {
		return id + flagName
	}
	return id
}
