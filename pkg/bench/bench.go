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
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/axiomhq/hyperloglog"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/matrixorigin/kvtable/pkg/common/moerr"
	"github.com/matrixorigin/kvtable/pkg/container/hashtable"
	"github.com/matrixorigin/kvtable/pkg/logutil"
)

type tableResult struct {
	inserts  int
	removes  int
	stats    hashtable.Stats
	distinct int
	sketch   *hyperloglog.Sketch
	err      error
}

// Run executes the workload on a pool of cfg.Workers goroutines and
// checks every table against a reference map. It stops submitting jobs
// once ctx is done and returns ctx.Err() in that case.
func Run(ctx context.Context, cfg Config, tableCfg hashtable.Config) (Report, error) {
	cfg.FillDefault()
	if err := cfg.Validate(); err != nil {
		return Report{}, err
	}

	pool, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return Report{}, moerr.ConvertGoError(ctx, err)
	}
	defer pool.Release()

	start := time.Now()
	results := make([]tableResult, cfg.Tables)
	var wg sync.WaitGroup
	submitted := 0
	for i := 0; i < cfg.Tables; i++ {
		if ctx.Err() != nil {
			break
		}
		id := i
		wg.Add(1)
		if err = pool.Submit(func() {
			defer wg.Done()
			results[id] = runTable(id, cfg, tableCfg)
		}); err != nil {
			wg.Done()
			break
		}
		submitted++
	}
	wg.Wait()

	report := Report{Tables: submitted, Elapsed: time.Since(start)}
	sketch := hyperloglog.New()
	for _, res := range results[:submitted] {
		if res.err != nil {
			return report, res.err
		}
		report.Inserts += res.inserts
		report.Removes += res.removes
		report.FinalSize += res.stats.Size
		report.Grows += res.stats.Grows
		if res.stats.MaxChainLen > report.MaxChainLen {
			report.MaxChainLen = res.stats.MaxChainLen
		}
		report.DistinctInserted += res.distinct
		if err := sketch.Merge(res.sketch); err != nil {
			return report, moerr.ConvertGoError(ctx, err)
		}
	}
	report.EstimatedDistinct = sketch.Estimate()

	if err != nil {
		return report, moerr.ConvertGoError(ctx, err)
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	logutil.Info("bench done",
		zap.Int("tables", report.Tables),
		zap.Int("inserts", report.Inserts),
		zap.Int("removes", report.Removes),
		zap.Int("final-size", report.FinalSize),
		zap.Int("grows", report.Grows),
		zap.Int("distinct", report.DistinctInserted),
		zap.Uint64("estimated-distinct", report.EstimatedDistinct),
		logutil.Since(start))
	return report, nil
}

func runTable(id int, cfg Config, tableCfg hashtable.Config) (res tableResult) {
	ht, err := hashtable.New(tableCfg)
	if err != nil {
		res.err = err
		return
	}
	res.sketch = hyperloglog.New()

	r := rand.New(rand.NewSource(cfg.Seed + int64(id)))
	key := func() string {
		return fmt.Sprintf("t%d-k%d", id, r.Intn(cfg.KeySpace))
	}
	ref := make(map[string]int64)
	inserted := make(map[string]struct{})

	for i := 0; i < cfg.KeysPerTable; i++ {
		k, v := key(), r.Int63()
		ht.Insert(k, v)
		ref[k] = v
		inserted[k] = struct{}{}
		res.sketch.Insert([]byte(k))
		res.inserts++

		if i%3 != 2 {
			continue
		}
		k = key()
		_, present := ref[k]
		if ht.Remove(k) != present {
			res.err = moerr.NewInternalErrorNoCtx("table %d: remove %q disagrees with reference", id, k)
			return
		}
		if present {
			delete(ref, k)
			res.removes++
		}
	}

	if ht.Size() != len(ref) {
		res.err = moerr.NewInternalErrorNoCtx("table %d: size %d, expected %d", id, ht.Size(), len(ref))
		return
	}
	for k, want := range ref {
		got, err := ht.Get(k)
		if err != nil {
			res.err = err
			return
		}
		if got != want {
			res.err = moerr.NewInternalErrorNoCtx("table %d: key %q maps to %d, expected %d", id, k, got, want)
			return
		}
	}
	res.stats = ht.Stats()
	res.distinct = len(inserted)
	return
}
