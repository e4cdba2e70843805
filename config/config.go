// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package config

import (
	"reflect"
	"strings"

	"github.com/spf13/viper"

	"github.com/cardinalhq/pqlint/internal/lint/rules"
)

// Config aggregates configuration for the application. Rule thresholds
// are tunable policy; the defaults are the shipped values.
type Config struct {
	Rules rules.Policy `mapstructure:"rules"`
	Bench BenchConfig  `mapstructure:"bench"`
}

// BenchConfig holds the benchmark harness parameters.
type BenchConfig struct {
	Iterations int   `mapstructure:"iterations"`
	BatchSize  int64 `mapstructure:"batch_size"`
}

// Load reads configuration from files and environment variables.
// Environment variables use the prefix "PQLINT" and the dot character
// in keys is replaced by an underscore. For example,
// "rules.min_column_bytes" becomes "PQLINT_RULES_MIN_COLUMN_BYTES".
func Load() (*Config, error) {
	cfg := &Config{
		Rules: rules.DefaultPolicy(),
		Bench: BenchConfig{
			Iterations: 3,
			BatchSize:  8192,
		},
	}

	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.SetEnvPrefix("PQLINT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, cfg)
	_ = v.ReadInConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bindEnvs registers all keys within cfg so that viper will look up
// corresponding environment variables when unmarshalling.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(parts, tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}
