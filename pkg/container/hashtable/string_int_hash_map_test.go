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
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/prashantv/gostub"
	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/kvtable/pkg/common/moerr"
	"github.com/matrixorigin/kvtable/pkg/container/hashtable/mock_hashtable"
)

type constHasher uint64

func (h constHasher) HashString(string) uint64 {
	return uint64(h)
}

// checkInvariants verifies that every cell sits in the bucket of its
// key, that no key is stored twice and that the size matches.
func checkInvariants(t *testing.T, ht *StringIntHashMap) {
	seen := make(map[string]struct{})
	total := 0
	require.Equal(t, int(ht.bucketCnt), len(ht.buckets))
	for i, cells := range ht.buckets {
		for _, cell := range cells {
			require.Equal(t, uint64(i), ht.position(cell.Key, ht.bucketCnt), "key %q", cell.Key)
			_, dup := seen[cell.Key]
			require.False(t, dup, "key %q stored twice", cell.Key)
			seen[cell.Key] = struct{}{}
			total++
		}
	}
	require.Equal(t, total, ht.Size())
}

func TestInsertUpsert(t *testing.T) {
	ht := NewDefault()
	ht.Insert("a", 1)
	ht.Insert("a", 2)
	v, err := ht.Get("a")
	require.NoError(t, err)
	require.Equal(t, int64(2), v)
	require.Equal(t, 1, ht.Size())
	checkInvariants(t, ht)
}

func TestInsertGetContains(t *testing.T) {
	ht := NewDefault()
	kvs := map[string]int64{
		"":         7,
		"zero":     0,
		"negative": -42,
		"big":      1 << 62,
	}
	for k, v := range kvs {
		ht.Insert(k, v)
	}
	require.Equal(t, len(kvs), ht.Size())
	for k, v := range kvs {
		got, err := ht.Get(k)
		require.NoError(t, err)
		require.Equal(t, v, got)
		require.True(t, ht.Contains(k))
	}

	_, err := ht.Get("missing")
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrKeyNotFound))
	_, ok := ht.Find("missing")
	require.False(t, ok)
	require.False(t, ht.Contains("missing"))
}

func TestZeroValueIsNotAbsent(t *testing.T) {
	ht := NewDefault()
	ht.Insert("k", 0)
	v, err := ht.Get("k")
	require.NoError(t, err)
	require.Equal(t, int64(0), v)

	_, err = ht.Get("other")
	require.Error(t, err)
}

func TestSizeCountsDistinctKeys(t *testing.T) {
	ht := NewDefault()
	ref := make(map[string]int64)
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 2000; i++ {
		k := fmt.Sprintf("k%d", r.Intn(500))
		v := r.Int63()
		ht.Insert(k, v)
		ref[k] = v
		require.Equal(t, len(ref), ht.Size())
	}
	for k, v := range ref {
		got, ok := ht.Find(k)
		require.True(t, ok)
		require.Equal(t, v, got)
	}
	checkInvariants(t, ht)
}

func TestRemove(t *testing.T) {
	ht := NewDefault()
	ht.Insert("a", 1)
	ht.Insert("b", 2)

	require.True(t, ht.Remove("a"))
	require.False(t, ht.Contains("a"))
	_, err := ht.Get("a")
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrKeyNotFound))
	require.Equal(t, 1, ht.Size())

	require.False(t, ht.Remove("a"))
	require.False(t, ht.Remove("never"))
	require.Equal(t, 1, ht.Size())

	require.True(t, ht.Remove("b"))
	require.False(t, ht.Remove("b"))
	require.Equal(t, 0, ht.Size())

	ht.Insert("a", 3)
	v, err := ht.Get("a")
	require.NoError(t, err)
	require.Equal(t, int64(3), v)
	require.Equal(t, 1, ht.Size())
	checkInvariants(t, ht)
}

func TestClearKeepsBuckets(t *testing.T) {
	ht := NewDefault()
	keys := make([]string, 0, 100)
	for i := 0; i < 100; i++ {
		k := fmt.Sprintf("key-%d", i)
		keys = append(keys, k)
		ht.Insert(k, int64(i))
	}
	buckets := ht.NumBuckets()
	require.Greater(t, buckets, kInitialBucketCnt)

	ht.Clear()
	require.Equal(t, 0, ht.Size())
	require.Equal(t, buckets, ht.NumBuckets())
	for _, k := range keys {
		require.False(t, ht.Contains(k))
	}

	for i, k := range keys {
		ht.Insert(k, int64(i))
	}
	require.Equal(t, buckets, ht.NumBuckets())
	checkInvariants(t, ht)
}

func TestGrowOnLoadFactor(t *testing.T) {
	ht := NewDefault()
	for i := 0; i < 12; i++ {
		ht.Insert(fmt.Sprintf("key-%d", i), int64(i*10))
	}
	require.Equal(t, 16, ht.NumBuckets())
	require.Equal(t, 0.75, ht.LoadFactor())

	ht.Insert("key-12", 120)
	require.Equal(t, 32, ht.NumBuckets())
	require.Equal(t, 13, ht.Size())
	for i := 0; i <= 12; i++ {
		v, err := ht.Get(fmt.Sprintf("key-%d", i))
		require.NoError(t, err)
		require.Equal(t, int64(i*10), v)
	}
	require.Equal(t, 1, ht.Stats().Grows)
	checkInvariants(t, ht)
}

func TestOverwriteDoesNotGrow(t *testing.T) {
	ht := NewDefault()
	for i := 0; i < 12; i++ {
		ht.Insert(fmt.Sprintf("key-%d", i), 0)
	}
	for i := 0; i < 12; i++ {
		ht.Insert(fmt.Sprintf("key-%d", i), 1)
	}
	require.Equal(t, 16, ht.NumBuckets())
	require.Equal(t, 12, ht.Size())
}

func TestGrowthFactorConfig(t *testing.T) {
	ht, err := New(Config{InitialBucketCnt: 4, GrowthFactor: 3, MaxLoadFactor: 1})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		ht.Insert(fmt.Sprintf("%d", i), int64(i))
	}
	require.Equal(t, 12, ht.NumBuckets())
	for i := 0; i < 13; i++ {
		ht.Insert(fmt.Sprintf("%d", i), int64(i))
	}
	require.Equal(t, 36, ht.NumBuckets())
	checkInvariants(t, ht)
}

func TestReserve(t *testing.T) {
	ht := NewDefault()
	ht.Reserve(0)
	require.Equal(t, 16, ht.NumBuckets())
	ht.Reserve(100)
	require.Equal(t, 256, ht.NumBuckets())
	require.Equal(t, 0, ht.Size())

	for i := 0; i < 100; i++ {
		ht.Insert(fmt.Sprintf("%d", i), int64(i))
	}
	require.Equal(t, 256, ht.NumBuckets())
}

func TestNewBadConfig(t *testing.T) {
	for _, cfg := range []Config{
		{InitialBucketCnt: -1},
		{GrowthFactor: 1},
		{MaxLoadFactor: -0.5},
		{MaxLoadFactor: math.NaN()},
		{MaxLoadFactor: math.Inf(1)},
		{MaxLoadFactor: math.Inf(-1)},
		{MaxLoadFactor: 1e-300},
		{MaxLoadFactor: 0.01},
		{GrowthFactor: 1 << 40},
		{GrowthFactor: 17},
		{InitialBucketCnt: 1 << 40},
		{Hasher: "md5"},
	} {
		_, err := New(cfg)
		require.True(t, moerr.IsMoErrCode(err, moerr.ErrBadConfig), "%+v", cfg)
	}

	ht, err := New(Config{Hasher: ByteSum})
	require.NoError(t, err)
	require.Equal(t, uint64('a'+'b'), ht.Hash("ab"))

	// the bounds themselves are accepted
	ht, err = New(Config{InitialBucketCnt: 1, GrowthFactor: 16, MaxLoadFactor: 0.05})
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		ht.Insert(fmt.Sprintf("k%d", i), int64(i))
	}
	require.Equal(t, 100, ht.Size())
	require.Equal(t, 4096, ht.NumBuckets())
	checkInvariants(t, ht)
}

func TestGrowPlacesByNewBucketCount(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	hasher := mock_hashtable.NewMockHasher(ctrl)
	hasher.EXPECT().HashString("x").Return(uint64(17)).AnyTimes()
	hasher.EXPECT().HashString("y").Return(uint64(1)).AnyTimes()

	ht, err := New(DefaultConfig(), WithHasher(hasher))
	require.NoError(t, err)
	ht.Insert("x", 1)
	ht.Insert("y", 2)
	require.Len(t, ht.buckets[1], 2)

	ht.Grow()
	require.Equal(t, 32, ht.NumBuckets())
	require.Len(t, ht.buckets[1], 1)
	require.Equal(t, "y", ht.buckets[1][0].Key)
	require.Len(t, ht.buckets[17], 1)
	require.Equal(t, "x", ht.buckets[17][0].Key)
	require.Equal(t, 2, ht.Size())
	checkInvariants(t, ht)
}

func TestChainUnderFullCollision(t *testing.T) {
	stubs := gostub.Stub(&defaultHasher, constHasher(5))
	defer stubs.Reset()

	ht := NewDefault()
	for i := 0; i < 10; i++ {
		ht.Insert(fmt.Sprintf("c%d", i), int64(i))
	}
	pos := uint64(5) % ht.bucketCnt
	require.Len(t, ht.buckets[pos], 10)
	require.Equal(t, 10, ht.Stats().MaxChainLen)
	require.Equal(t, 1, ht.Stats().NonEmptyBuckets)

	require.True(t, ht.Remove("c4"))
	keys := make([]string, 0, 9)
	for _, cell := range ht.buckets[pos] {
		keys = append(keys, cell.Key)
	}
	require.Equal(t, []string{"c0", "c1", "c2", "c3", "c5", "c6", "c7", "c8", "c9"}, keys)

	for i := 0; i < 10; i++ {
		v, ok := ht.Find(fmt.Sprintf("c%d", i))
		require.Equal(t, i != 4, ok)
		if ok {
			require.Equal(t, int64(i), v)
		}
	}
	checkInvariants(t, ht)
}

func TestIdempotentReads(t *testing.T) {
	ht := NewDefault()
	ht.Insert("a", 1)
	for i := 0; i < 3; i++ {
		v, err := ht.Get("a")
		require.NoError(t, err)
		require.Equal(t, int64(1), v)
		require.True(t, ht.Contains("a"))
		require.False(t, ht.Contains("b"))
		require.Equal(t, 1, ht.Size())
		require.Equal(t, 16, ht.NumBuckets())
	}
}

func TestIterate(t *testing.T) {
	ht := NewDefault()
	want := make(map[string]int64)
	for i := 0; i < 50; i++ {
		k := fmt.Sprintf("it-%d", i)
		want[k] = int64(i)
		ht.Insert(k, int64(i))
	}
	got := make(map[string]int64)
	ht.Iterate(func(k string, v int64) bool {
		got[k] = v
		return true
	})
	require.Equal(t, want, got)

	n := 0
	ht.Iterate(func(string, int64) bool {
		n++
		return n < 3
	})
	require.Equal(t, 3, n)
}

func TestRandomOps(t *testing.T) {
	for _, name := range []string{XXHash, WyHash, ByteSum} {
		t.Run(name, func(t *testing.T) {
			ht, err := New(Config{Hasher: name})
			require.NoError(t, err)
			ref := make(map[string]int64)
			r := rand.New(rand.NewSource(42))
			for i := 0; i < 5000; i++ {
				k := fmt.Sprintf("r%d", r.Intn(300))
				switch r.Intn(5) {
				case 0, 1:
					v := r.Int63n(1000)
					ht.Insert(k, v)
					ref[k] = v
				case 2:
					_, ok := ref[k]
					require.Equal(t, ok, ht.Remove(k))
					delete(ref, k)
				case 3:
					ht.At(k).Add(1)
					ref[k]++
				default:
					v, ok := ht.Find(k)
					rv, rok := ref[k]
					require.Equal(t, rok, ok)
					require.Equal(t, rv, v)
				}
				require.Equal(t, len(ref), ht.Size())
			}
			checkInvariants(t, ht)
		})
	}
}

func BenchmarkInsert(b *testing.B) {
	keys := make([]string, 1<<16)
	for i := range keys {
		keys[i] = fmt.Sprintf("bench-key-%d", i)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ht := NewDefault()
		for j, k := range keys {
			ht.Insert(k, int64(j))
		}
	}
}
