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

package config

import (
	"context"

	"github.com/BurntSushi/toml"

	"github.com/matrixorigin/kvtable/pkg/bench"
	"github.com/matrixorigin/kvtable/pkg/common/moerr"
	"github.com/matrixorigin/kvtable/pkg/container/hashtable"
	"github.com/matrixorigin/kvtable/pkg/logutil"
)

// Config is the kvtable configuration file layout.
type Config struct {
	// Table shapes every table the tools create
	Table hashtable.Config `toml:"table"`

	// Log configures the global logger
	Log logutil.LogConfig `toml:"log"`

	// Bench is the bench workload
	Bench bench.Config `toml:"bench"`
}

// NewConfig returns a Config with every default filled.
func NewConfig() *Config {
	cfg := &Config{}
	cfg.FillDefault()
	return cfg
}

func (c *Config) FillDefault() {
	c.Table.FillDefault()
	c.Log.FillDefault()
	c.Bench.FillDefault()
}

func (c *Config) Validate() error {
	if err := c.Table.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	return c.Bench.Validate()
}

// LoadConfigFromFile decodes the toml file at path, rejects keys the
// Config does not know, fills defaults and validates the result.
func LoadConfigFromFile(ctx context.Context, path string) (*Config, error) {
	cfg := &Config{}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, moerr.NewBadConfig(ctx, "decode %s: %v", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, moerr.NewBadConfig(ctx, "unknown key %s in %s", undecoded[0].String(), path)
	}
	cfg.FillDefault()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
