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

package source

import (
	"context"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/kevinburke/ssh_config"
	"github.com/poiesic/trident/core"
)

// SSHConfig reads Host aliases from an OpenSSH client config file.
type SSHConfig struct {
	Path string
}

var _ Source = (*SSHConfig)(nil)

func (s *SSHConfig) Name() core.Source { return core.SourceSSHConfig }

func (s *SSHConfig) Paths() []string { return []string{s.Path} }

func (s *SSHConfig) Load(ctx context.Context) ([]core.HostEntry, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseSSHConfig(f)
}

// ParseSSHConfig returns one entry per concrete Host alias. Patterns with
// wildcards or negation are skipped. HostName, User and Port in the block
// are recorded as detail; the connection target is always "ssh <alias>" so
// ssh applies the full config itself. Include files are not followed for
// aliases.
func ParseSSHConfig(r io.Reader) ([]core.HostEntry, error) {
	cfg, err := ssh_config.Decode(r)
	if err != nil {
		return nil, err
	}

	var entries []core.HostEntry
	seen := make(map[string]bool)
	for _, host := range cfg.Hosts {
		var aliases []string
		for _, p := range host.Patterns {
			alias := p.String()
			if alias == "" || strings.ContainsAny(alias, "*?!") {
				continue
			}
			aliases = append(aliases, alias)
		}
		if len(aliases) == 0 {
			continue
		}

		detail := blockDetail(host)
		for _, alias := range aliases {
			if seen[alias] {
				continue
			}
			seen[alias] = true
			e := detail
			e.Name = alias
			e.ConnectionTarget = "ssh " + alias
			e.Source = core.SourceSSHConfig
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// blockDetail collects the first HostName, User and Port of a block, the
// way ssh resolves repeated keys.
func blockDetail(host *ssh_config.Host) core.HostEntry {
	var e core.HostEntry
	for _, node := range host.Nodes {
		kv, ok := node.(*ssh_config.KV)
		if !ok {
			continue
		}
		switch strings.ToLower(kv.Key) {
		case "hostname":
			if e.HostName == "" {
				e.HostName = kv.Value
			}
		case "user":
			if e.User == "" {
				e.User = kv.Value
			}
		case "port":
			if e.Port == 0 {
				if p, err := strconv.Atoi(kv.Value); err == nil && p > 0 && p <= 65535 {
					e.Port = p
				}
			}
		}
	}
	return e
}
