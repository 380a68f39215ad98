// Copyright 2021 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package hashtable

import (
	"math/bits"
	"unsafe"

	"github.com/cespare/xxhash/v2"
)

// Hasher maps the content of a key to a 64-bit hash. Implementations
// must depend on the key bytes only.
type Hasher interface {
	HashString(key string) uint64
}

const (
	XXHash  = "xxhash"
	WyHash  = "wyhash"
	ByteSum = "bytesum"
)

var hasherByName = map[string]Hasher{
	XXHash:  XXHasher{},
	WyHash:  WyHasher{},
	ByteSum: ByteSumHasher{},
}

// defaultHasher is used when Config.Hasher is empty.
var defaultHasher Hasher = XXHasher{}

// HasherByName returns the named hasher, or false if the name is unknown.
// An empty name resolves to the default hasher.
func HasherByName(name string) (Hasher, bool) {
	if name == "" {
		return defaultHasher, true
	}
	h, ok := hasherByName[name]
	return h, ok
}

type XXHasher struct{}

func (XXHasher) HashString(key string) uint64 {
	return xxhash.Sum64String(key)
}

// ByteSumHasher adds up the key bytes. It distributes poorly, anagrams
// always collide, but placement is easy to predict by hand.
type ByteSumHasher struct{}

func (ByteSumHasher) HashString(key string) uint64 {
	var sum uint64
	for i := 0; i < len(key); i++ {
		sum += uint64(key[i])
	}
	return sum
}

// WyHasher is wyhash with a fixed seed, so hashes are stable across
// processes.
type WyHasher struct{}

func (WyHasher) HashString(key string) uint64 {
	return wyhash(unsafe.Pointer(unsafe.StringData(key)), wySeed, uint64(len(key)))
}

const (
	wySeed = 0x2d358dccaa6c78a5

	m1 = 0xa0761d6478bd642f
	m2 = 0xe7037ed1a0b428db
	m3 = 0x8ebc6af09c88c6e3
	m4 = 0x589965cc75374cc3
	m5 = 0x1d8e4e27c47d124f
)

func wyhash(data unsafe.Pointer, seed, s uint64) uint64 {
	var a, b uint64
	seed ^= m1
	switch {
	case s == 0:
		return seed
	case s < 4:
		a = uint64(*(*byte)(data))
		a |= uint64(*(*byte)(unsafe.Add(data, s>>1))) << 8
		a |= uint64(*(*byte)(unsafe.Add(data, s-1))) << 16
	case s == 4:
		a = r4(data, 0)
		b = a
	case s < 8:
		a = r4(data, 0)
		b = r4(data, s-4)
	case s == 8:
		a = r8(data, 0)
		b = a
	case s <= 16:
		a = r8(data, 0)
		b = r8(data, s-8)
	default:
		l := s
		if l > 48 {
			seed1 := seed
			seed2 := seed
			for ; l > 48; l -= 48 {
				seed = mix(r8(data, 0)^m2, r8(data, 8)^seed)
				seed1 = mix(r8(data, 16)^m3, r8(data, 24)^seed1)
				seed2 = mix(r8(data, 32)^m4, r8(data, 40)^seed2)
				data = unsafe.Add(data, 48)
			}
			seed ^= seed1 ^ seed2
		}
		for ; l > 16; l -= 16 {
			seed = mix(r8(data, 0)^m2, r8(data, 8)^seed)
			data = unsafe.Add(data, 16)
		}
		a = r8(data, l-16)
		b = r8(data, l-8)
	}

	return mix(m5^s, mix(a^m2, b^seed))
}

func mix(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	return hi ^ lo
}

func r4(data unsafe.Pointer, p uint64) uint64 {
	return uint64(*(*uint32)(unsafe.Add(data, p)))
}

func r8(data unsafe.Pointer, p uint64) uint64 {
	return *(*uint64)(unsafe.Add(data, p))
}
