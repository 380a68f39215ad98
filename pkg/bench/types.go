// Copyright 2021 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bench

import (
	"time"

	"github.com/matrixorigin/kvtable/pkg/common/moerr"
)

const (
	defaultWorkers      = 4
	defaultTables       = 8
	defaultKeysPerTable = 10000
	defaultKeySpace     = 4096
	defaultSeed         = 1
)

// Config describes a bench workload. Every table is owned by exactly one
// job, tables are never shared between goroutines.
type Config struct {
	// Workers is the size of the goroutine pool
	Workers int `toml:"workers"`
	// Tables is the number of independent tables, one job each
	Tables int `toml:"tables"`
	// KeysPerTable is the number of insert operations per table
	KeysPerTable int `toml:"keys-per-table"`
	// KeySpace bounds the distinct keys per table
	KeySpace int   `toml:"key-space"`
	Seed     int64 `toml:"seed"`
}

func (c *Config) FillDefault() {
	if c.Workers == 0 {
		c.Workers = defaultWorkers
	}
	if c.Tables == 0 {
		c.Tables = defaultTables
	}
	if c.KeysPerTable == 0 {
		c.KeysPerTable = defaultKeysPerTable
	}
	if c.KeySpace == 0 {
		c.KeySpace = defaultKeySpace
	}
	if c.Seed == 0 {
		c.Seed = defaultSeed
	}
}

func (c Config) Validate() error {
	switch {
	case c.Workers < 1:
		return moerr.NewBadConfigNoCtx("bench workers must be positive, got %d", c.Workers)
	case c.Tables < 1:
		return moerr.NewBadConfigNoCtx("bench tables must be positive, got %d", c.Tables)
	case c.KeysPerTable < 1:
		return moerr.NewBadConfigNoCtx("bench keys-per-table must be positive, got %d", c.KeysPerTable)
	case c.KeySpace < 1:
		return moerr.NewBadConfigNoCtx("bench key-space must be positive, got %d", c.KeySpace)
	}
	return nil
}

// Report sums up a bench run.
type Report struct {
	Tables  int
	Inserts int
	// Removes counts the removals that found their key, misses on
	// absent keys are not included.
	Removes int
	// FinalSize is the sum of the table sizes after the run.
	FinalSize int
	Grows     int
	// MaxChainLen is the longest chain seen in any table.
	MaxChainLen int
	// DistinctInserted is the exact number of distinct keys inserted
	// and EstimatedDistinct its HyperLogLog estimate.
	DistinctInserted  int
	EstimatedDistinct uint64
	Elapsed           time.Duration
}
