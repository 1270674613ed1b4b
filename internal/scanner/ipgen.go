// Package scanner supplies random public IPv4 candidates and the TCP
// reachability probe used by the search workers.
package scanner

import (
	crand "crypto/rand"
	"math/rand/v2"
	"net/netip"

	"github.com/pkg/errors"
)

// Generator yields random public IPv4 addresses from a ChaCha8 stream
// seeded once from the OS entropy source. Safe for a single goroutine;
// each search worker owns its own Generator.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator seeds a generator from crypto/rand.
func NewGenerator() (*Generator, error) {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		return nil, errors.Wrap(err, "seed ip generator")
	}
	return &Generator{rng: rand.New(rand.NewChaCha8(seed))}, nil
}

// Next draws 32 random bits and resamples until the address is outside
// every reserved range.
func (g *Generator) Next() netip.Addr {
	for {
		v := g.rng.Uint32()
		octets := [4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
		if !IsReserved(octets) {
			return netip.AddrFrom4(octets)
		}
	}
}

// IsReserved reports whether the address falls in a range the sampler
// must never emit. The table is fixed so coverage stays reproducible:
//
//	0/8 and 224/3   non-unicast (first octet 0 or > 223)
//	10/8            private
//	127/8           loopback
//	172.16/12       private
//	192.168/16      private
//	192.0.2/24      TEST-NET-1
//	169.254/16      link-local
//	100.64/10       CGNAT
//	198.18/15       benchmarking
//	198.51.100/24   TEST-NET-2
//	203.0.113/24    TEST-NET-3
func IsReserved(o [4]byte) bool {
	switch {
	case o[0] == 0 || o[0] > 223:
		return true
	case o[0] == 10:
		return true
	case o[0] == 127:
		return true
	case o[0] == 172 && o[1] >= 16 && o[1] <= 31:
		return true
	case o[0] == 192 && o[1] == 168:
		return true
	case o[0] == 192 && o[1] == 0 && o[2] == 2:
		return true
	case o[0] == 169 && o[1] == 254:
		return true
	case o[0] == 100 && o[1] >= 64 && o[1] <= 127:
		return true
	case o[0] == 198 && (o[1] == 18 || o[1] == 19):
		return true
	case o[0] == 198 && o[1] == 51 && o[2] == 100:
		return true
	case o[0] == 203 && o[1] == 0 && o[2] == 113:
		return true
	}
	return false
}
