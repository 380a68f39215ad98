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
	"go.uber.org/zap"

	"github.com/matrixorigin/kvtable/pkg/common/moerr"
	"github.com/matrixorigin/kvtable/pkg/logutil"
)

type StringIntHashMapCell struct {
	Key    string
	Mapped int64
}

// StringIntHashMap is a separate chaining hash table from string keys
// to int64 values. Each bucket is an ordered chain of cells, a key is
// stored at most once, in bucket hash(key) % bucketCnt. Removal erases
// the cell, so every cell in a chain is live.
//
// It is not safe for concurrent use.
type StringIntHashMap struct {
	hasher        Hasher
	growthFactor  uint64
	maxLoadFactor float64

	bucketCnt uint64
	elemCnt   uint64
	growCnt   uint64
	buckets   [][]StringIntHashMapCell
}

type Option func(*StringIntHashMap)

// WithHasher overrides the hasher named by the config.
func WithHasher(h Hasher) Option {
	return func(ht *StringIntHashMap) {
		ht.hasher = h
	}
}

// New creates an empty table. Zero fields of cfg take their defaults.
func New(cfg Config, opts ...Option) (*StringIntHashMap, error) {
	cfg.FillDefault()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	hasher, _ := HasherByName(cfg.Hasher)

	ht := &StringIntHashMap{
		hasher:        hasher,
		growthFactor:  uint64(cfg.GrowthFactor),
		maxLoadFactor: cfg.MaxLoadFactor,
		bucketCnt:     uint64(cfg.InitialBucketCnt),
	}
	for _, opt := range opts {
		opt(ht)
	}
	ht.buckets = make([][]StringIntHashMapCell, ht.bucketCnt)
	return ht, nil
}

// NewDefault creates an empty table with DefaultConfig.
func NewDefault() *StringIntHashMap {
	ht, err := New(DefaultConfig())
	if err != nil {
		panic(err)
	}
	return ht
}

// Hash returns the raw hash of key. It is reduced against whatever
// bucket count is in effect at the time of use.
func (ht *StringIntHashMap) Hash(key string) uint64 {
	return ht.hasher.HashString(key)
}

func (ht *StringIntHashMap) position(key string, bucketCnt uint64) uint64 {
	return ht.hasher.HashString(key) % bucketCnt
}

// findCell returns the bucket index of key and the index of its cell
// in that bucket, or -1 when key is absent.
func (ht *StringIntHashMap) findCell(key string) (uint64, int) {
	pos := ht.position(key, ht.bucketCnt)
	for i := range ht.buckets[pos] {
		if ht.buckets[pos][i].Key == key {
			return pos, i
		}
	}
	return pos, -1
}

// Insert maps key to value. An existing mapping is overwritten in place
// and does not change the size.
func (ht *StringIntHashMap) Insert(key string, value int64) {
	pos, idx := ht.findCell(key)
	if idx >= 0 {
		ht.buckets[pos][idx].Mapped = value
		return
	}
	ht.buckets[pos] = append(ht.buckets[pos], StringIntHashMapCell{Key: key, Mapped: value})
	ht.elemCnt++
	ht.growOnDemand()
}

// Find returns the value of key and whether it is present.
func (ht *StringIntHashMap) Find(key string) (int64, bool) {
	pos, idx := ht.findCell(key)
	if idx < 0 {
		return 0, false
	}
	return ht.buckets[pos][idx].Mapped, true
}

// Get returns the value of key, or an ErrKeyNotFound error.
func (ht *StringIntHashMap) Get(key string) (int64, error) {
	if v, ok := ht.Find(key); ok {
		return v, nil
	}
	return 0, moerr.NewKeyNotFoundNoCtx(key)
}

func (ht *StringIntHashMap) Contains(key string) bool {
	_, idx := ht.findCell(key)
	return idx >= 0
}

// At returns a handle to the value of key, inserting key with value 0
// first if it is absent.
func (ht *StringIntHashMap) At(key string) Slot {
	if !ht.Contains(key) {
		ht.Insert(key, 0)
	}
	return Slot{table: ht, key: key}
}

// Remove erases key and reports whether it was present.
func (ht *StringIntHashMap) Remove(key string) bool {
	pos, idx := ht.findCell(key)
	if idx < 0 {
		return false
	}
	cells := ht.buckets[pos]
	copy(cells[idx:], cells[idx+1:])
	cells[len(cells)-1] = StringIntHashMapCell{}
	ht.buckets[pos] = cells[:len(cells)-1]
	ht.elemCnt--
	return true
}

// Clear drops every entry. The bucket count is kept, so a table that
// refills to its previous size does not grow again.
func (ht *StringIntHashMap) Clear() {
	for i := range ht.buckets {
		ht.buckets[i] = nil
	}
	ht.elemCnt = 0
}

func (ht *StringIntHashMap) Size() int {
	return int(ht.elemCnt)
}

func (ht *StringIntHashMap) NumBuckets() int {
	return int(ht.bucketCnt)
}

func (ht *StringIntHashMap) LoadFactor() float64 {
	return float64(ht.elemCnt) / float64(ht.bucketCnt)
}

func (ht *StringIntHashMap) needGrow(elemCnt, bucketCnt uint64) bool {
	return float64(elemCnt)/float64(bucketCnt) > ht.maxLoadFactor
}

func (ht *StringIntHashMap) growOnDemand() {
	for ht.needGrow(ht.elemCnt, ht.bucketCnt) {
		ht.Grow()
	}
}

// Reserve grows the table until n entries fit without crossing the
// load factor.
func (ht *StringIntHashMap) Reserve(n int) {
	if n <= 0 {
		return
	}
	for ht.needGrow(uint64(n), ht.bucketCnt) {
		ht.Grow()
	}
}

// Grow multiplies the bucket count by the growth factor and moves every
// cell to its bucket under the new count.
func (ht *StringIntHashMap) Grow() {
	newBucketCnt := ht.bucketCnt * ht.growthFactor
	newBuckets := make([][]StringIntHashMapCell, newBucketCnt)
	for _, cells := range ht.buckets {
		for _, cell := range cells {
			pos := ht.position(cell.Key, newBucketCnt)
			newBuckets[pos] = append(newBuckets[pos], cell)
		}
	}

	if logutil.DebugEnabled() {
		logutil.Debug("hashtable grow",
			zap.Uint64("old-buckets", ht.bucketCnt),
			zap.Uint64("new-buckets", newBucketCnt),
			zap.Uint64("size", ht.elemCnt))
	}

	ht.buckets = newBuckets
	ht.bucketCnt = newBucketCnt
	ht.growCnt++
}

// Iterate calls fn for every entry, in no particular order, until fn
// returns false. fn must not modify the table.
func (ht *StringIntHashMap) Iterate(fn func(key string, value int64) bool) {
	for _, cells := range ht.buckets {
		for _, cell := range cells {
			if !fn(cell.Key, cell.Mapped) {
				return
			}
		}
	}
}

type Stats struct {
	Size            int
	Buckets         int
	NonEmptyBuckets int
	MaxChainLen     int
	Grows           int
}

func (ht *StringIntHashMap) Stats() Stats {
	s := Stats{
		Size:    int(ht.elemCnt),
		Buckets: int(ht.bucketCnt),
		Grows:   int(ht.growCnt),
	}
	for _, cells := range ht.buckets {
		if len(cells) == 0 {
			continue
		}
		s.NonEmptyBuckets++
		if len(cells) > s.MaxChainLen {
			s.MaxChainLen = len(cells)
		}
	}
	return s
}
