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

package match

import (
	"errors"
	"fmt"
)

// ErrInvalidWeights is returned by Weights.Validate.
var ErrInvalidWeights = errors.New("invalid match weights")

// Weights are the scoring constants for one Matcher.
type Weights struct {
	Base       float64 // per matched rune
	Contiguity float64 // times run length squared, per run
	Boundary   float64 // per run starting at a word boundary
	Exact      float64 // added when the whole name equals the query
	Gap        float64 // per skipped rune between two matched runes
	Leading    float64 // per rune skipped before the first match
	LeadingCap float64 // cap on the leading penalty
}

// DefaultWeights favor contiguous runs and word starts strongly enough
// that a prefix beats a scattered match of the same query.
func DefaultWeights() Weights {
	return Weights{
		Base:       1.0,
		Contiguity: 1.0,
		Boundary:   3.0,
		Exact:      10000.0,
		Gap:        0.25,
		Leading:    0.1,
		LeadingCap: 2.0,
	}
}

// Validate rejects negative weights and a zero base.
func (w Weights) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"base", w.Base}, {"contiguity", w.Contiguity}, {"boundary", w.Boundary},
		{"exact", w.Exact}, {"gap", w.Gap}, {"leading", w.Leading}, {"leading_cap", w.LeadingCap},
	}
	for _, f := range fields {
		if f.v < 0 {
			return fmt.Errorf("%w: %s is negative", ErrInvalidWeights, f.name)
		}
	}
	if w.Base == 0 {
		return fmt.Errorf("%w: base must be positive", ErrInvalidWeights)
	}
	return nil
}
