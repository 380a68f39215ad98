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
	"math"

	"github.com/matrixorigin/kvtable/pkg/common/moerr"
)

const (
	kInitialBucketCnt = 16
	kGrowthFactor     = 2
	kMaxLoadFactor    = 0.75

	// bounds accepted by Validate
	kMinLoadFactor    = 0.05
	kMaxGrowthFactor  = 16
	kMaxInitialBucket = 1 << 30
)

// Config controls the shape and growth policy of a StringIntHashMap.
type Config struct {
	// InitialBucketCnt is the bucket count of a new table.
	InitialBucketCnt int `toml:"initial-bucket-count"`
	// GrowthFactor multiplies the bucket count on every growth.
	GrowthFactor int `toml:"growth-factor"`
	// MaxLoadFactor is the size/bucket ratio that, once exceeded by an
	// insert, triggers growth.
	MaxLoadFactor float64 `toml:"max-load-factor"`
	// Hasher names the hash function: xxhash, wyhash or bytesum.
	// Empty selects the package default.
	Hasher string `toml:"hasher"`
}

// DefaultConfig returns the 16 buckets, x2 growth, 0.75 load factor setup.
func DefaultConfig() Config {
	var cfg Config
	cfg.FillDefault()
	return cfg
}

func (c *Config) FillDefault() {
	if c.InitialBucketCnt == 0 {
		c.InitialBucketCnt = kInitialBucketCnt
	}
	if c.GrowthFactor == 0 {
		c.GrowthFactor = kGrowthFactor
	}
	if c.MaxLoadFactor == 0 {
		c.MaxLoadFactor = kMaxLoadFactor
	}
}

func (c Config) Validate() error {
	if c.InitialBucketCnt < 1 || c.InitialBucketCnt > kMaxInitialBucket {
		return moerr.NewBadConfigNoCtx("initial bucket count must be in [1, %d], got %d", kMaxInitialBucket, c.InitialBucketCnt)
	}
	if c.GrowthFactor < 2 || c.GrowthFactor > kMaxGrowthFactor {
		return moerr.NewBadConfigNoCtx("growth factor must be in [2, %d], got %d", kMaxGrowthFactor, c.GrowthFactor)
	}
	if math.IsNaN(c.MaxLoadFactor) || math.IsInf(c.MaxLoadFactor, 0) {
		return moerr.NewBadConfigNoCtx("max load factor must be finite, got %v", c.MaxLoadFactor)
	}
	if c.MaxLoadFactor < kMinLoadFactor {
		return moerr.NewBadConfigNoCtx("max load factor must be at least %v, got %v", kMinLoadFactor, c.MaxLoadFactor)
	}
	if c.Hasher != "" {
		if _, ok := hasherByName[c.Hasher]; !ok {
			return moerr.NewBadConfigNoCtx("unknown hasher %q", c.Hasher)
		}
	}
	return nil
}
