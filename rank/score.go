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

// Package rank turns fuzzy scores and usage history into a total order.
//
// Every function here is pure: callers supply the clock reading and the
// usage numbers, so a query's ordering depends only on its inputs.
package rank

import (
	"math"
	"time"
)

// RecencyParams shape the recency bonus.
type RecencyParams struct {
	Max      float64       // bonus for an entry used at now
	HalfLife time.Duration // age at which the bonus halves
	Horizon  time.Duration // age past which the bonus is zero; 0 means no horizon
}

// Params are the ranking constants for one query.
type Params struct {
	UsageWeightFactor float64
	Recency           RecencyParams
}

// NormalizedUsage compresses a launch count into [0,1] relative to the most
// used entry. Growth is logarithmic so heavy use saturates.
func NormalizedUsage(count, maxCount uint64) float64 {
	if maxCount == 0 || count == 0 {
		return 0
	}
	if count >= maxCount {
		return 1
	}
	return math.Log1p(float64(count)) / math.Log1p(float64(maxCount))
}

// RecencyBonus decays exponentially with the time since lastUsed.
// Never-used entries and entries older than the horizon get nothing;
// timestamps after now count as age zero.
func RecencyBonus(lastUsed, now time.Time, p RecencyParams) float64 {
	if lastUsed.IsZero() || p.Max <= 0 || p.HalfLife <= 0 {
		return 0
	}
	age := now.Sub(lastUsed)
	if age < 0 {
		age = 0
	}
	if p.Horizon > 0 && age > p.Horizon {
		return 0
	}
	return p.Max * math.Exp2(-float64(age)/float64(p.HalfLife))
}

// Final combines the three signals:
//
//	final = fuzzy * (1 + factor*normUsage) + recency
//
// An empty query has a fuzzy score of zero for every entry; it is treated
// as one so usage still orders the full list.
func Final(fuzzy, normUsage, recency, factor float64) float64 {
	if fuzzy == 0 {
		fuzzy = 1
	}
	return fuzzy*(1+factor*normUsage) + recency
}
