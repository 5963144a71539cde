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

package badger

import (
	"fmt"

	"github.com/poiesic/trident/core"
)

// Key prefixes for different data types
const (
	usagePrefix = "usage"
)

// makeUsageKey generates a key for a usage record.
// Names are hashed so arbitrary host names make fixed-size keys.
func makeUsageKey(name string) []byte {
	return []byte(fmt.Sprintf("%s:%d", usagePrefix, core.IDFromContent(name)))
}

// usageKeyPrefix is the iteration prefix covering every usage record.
func usageKeyPrefix() []byte {
	return []byte(usagePrefix + ":")
}
