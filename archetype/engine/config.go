// Copyright 2025 The Archetype Authors
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

package engine

import (
	"github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"

	"archetype.dev/go/archetype/context"
	"archetype.dev/go/archetype/errors"
	"archetype.dev/go/archetype/input"
	"archetype.dev/go/archetype/load"
	"archetype.dev/go/archetype/plan"
	"archetype.dev/go/archetype/token"
	"archetype.dev/go/archetype/value"
)

// A Config configures one run.
type Config struct {
	// Loader resolves the script namespace. Required.
	Loader *load.Loader

	// Entry overrides the loader's entry script path.
	Entry string

	// Resolver produces input values. Required.
	Resolver input.Resolver

	// External seeds the context with read-only values keyed by absolute
	// dotted path, as recorded by a previous run or supplied by the
	// embedder. Inputs whose path carries an external value are never
	// prompted.
	External map[string]value.Value

	// Logger receives debug records of the walk. The default is the
	// logrus standard logger.
	Logger logrus.FieldLogger

	// Tracer receives one span per run, per script invocation, and per
	// prompt. The default is the global tracer.
	Tracer opentracing.Tracer
}

func (cfg *Config) complete() error {
	if cfg.Loader == nil {
		return errors.Newf(errors.IOError, token.NoPos, "engine: no loader configured")
	}
	if cfg.Resolver == nil {
		return errors.Newf(errors.IOError, token.NoPos, "engine: no resolver configured")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = opentracing.GlobalTracer()
	}
	if cfg.Entry == "" {
		cfg.Entry = cfg.Loader.EntryPath()
	}
	return nil
}

// A Result carries everything a run produced: the finalized context and
// the output plan renderers consume.
type Result struct {
	Context *context.Context
	Plan    *plan.Plan
}
