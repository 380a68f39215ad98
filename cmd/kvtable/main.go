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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/matrixorigin/kvtable/pkg/bench"
	"github.com/matrixorigin/kvtable/pkg/common/moerr"
	"github.com/matrixorigin/kvtable/pkg/config"
	"github.com/matrixorigin/kvtable/pkg/container/hashtable"
	"github.com/matrixorigin/kvtable/pkg/logutil"
)

var (
	configFile = flag.String("cfg", "", "toml configuration, defaults are used when empty")
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-cfg file] run <script>|bench\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	cfg, err := loadConfig(ctx, *configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse config from %s, error: %s\n", *configFile, err.Error())
		os.Exit(1)
	}
	logutil.SetupLogger(&cfg.Log)

	if err := dispatch(ctx, cfg, flag.Args()); err != nil {
		logutil.Error("kvtable failed", zap.Error(err))
		os.Exit(1)
	}
}

func loadConfig(ctx context.Context, path string) (*config.Config, error) {
	if path == "" {
		return config.NewConfig(), nil
	}
	return config.LoadConfigFromFile(ctx, path)
}

func dispatch(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) == 0 {
		flag.Usage()
		return moerr.NewInvalidInputNoCtx("missing command")
	}
	switch args[0] {
	case "run":
		if len(args) != 2 {
			flag.Usage()
			return moerr.NewInvalidInputNoCtx("run takes exactly one script, got %d arguments", len(args)-1)
		}
		return runScriptFile(cfg, args[1])
	case "bench":
		if len(args) != 1 {
			flag.Usage()
			return moerr.NewInvalidInputNoCtx("bench takes no arguments, got %d", len(args)-1)
		}
		report, err := bench.Run(ctx, cfg.Bench, cfg.Table)
		if err != nil {
			return err
		}
		printReport(report)
		return nil
	default:
		flag.Usage()
		return moerr.NewInvalidInputNoCtx("unknown command %q", args[0])
	}
}

func runScriptFile(cfg *config.Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	ht, err := hashtable.New(cfg.Table)
	if err != nil {
		return err
	}
	return newInterpreter(ht, os.Stdout).run(f)
}

func printReport(r bench.Report) {
	fmt.Printf("tables:             %d\n", r.Tables)
	fmt.Printf("inserts:            %d\n", r.Inserts)
	fmt.Printf("removes:            %d\n", r.Removes)
	fmt.Printf("final size:         %d\n", r.FinalSize)
	fmt.Printf("grows:              %d\n", r.Grows)
	fmt.Printf("longest chain:      %d\n", r.MaxChainLen)
	fmt.Printf("distinct keys:      %d\n", r.DistinctInserted)
	fmt.Printf("estimated distinct: %d\n", r.EstimatedDistinct)
	fmt.Printf("elapsed:            %s\n", r.Elapsed)
}
