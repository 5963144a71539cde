// Copyright 2025 Poiesic Systems
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

package search

import (
	"log/slog"
	"time"

	"github.com/poiesic/trident/core"
)

// Monitor observes the stages of one query.
type Monitor interface {
	Start(query string)
	CacheHit(results []core.Match)
	AfterScoring(matched int)
	Finish(results []core.Match, elapsed time.Duration)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                         {}
func (n *noopMonitor) CacheHit(_ []core.Match)                {}
func (n *noopMonitor) AfterScoring(_ int)                     {}
func (n *noopMonitor) Finish(_ []core.Match, _ time.Duration) {}

// BudgetMonitor warns when a query runs past its latency budget. It keeps
// no per-query state and may be shared by concurrent searches.
type BudgetMonitor struct {
	noopMonitor
	budget time.Duration
	logger *slog.Logger
}

var _ Monitor = (*BudgetMonitor)(nil)

// NewBudgetMonitor creates a monitor for the given budget. A nil logger
// uses slog.Default().
func NewBudgetMonitor(budget time.Duration, logger *slog.Logger) *BudgetMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &BudgetMonitor{budget: budget, logger: logger}
}

func (m *BudgetMonitor) Finish(results []core.Match, elapsed time.Duration) {
	if m.budget > 0 && elapsed > m.budget {
		m.logger.Warn("query exceeded latency budget",
			"results", len(results),
			"elapsed", elapsed,
			"budget", m.budget)
	}
}
