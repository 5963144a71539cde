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
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/poiesic/trident/core"
	"golang.org/x/crypto/ssh"
)

// KnownHosts reads host names from an OpenSSH known_hosts file.
type KnownHosts struct {
	Path string
	// SkipHashed drops hashed (|1|...) entries. When false they are kept
	// under their hashed token, which is only useful for counting.
	SkipHashed bool
	Logger     *slog.Logger
}

var _ Source = (*KnownHosts)(nil)

func (k *KnownHosts) Name() core.Source { return core.SourceKnownHosts }

func (k *KnownHosts) Paths() []string { return []string{k.Path} }

func (k *KnownHosts) Load(ctx context.Context) ([]core.HostEntry, error) {
	f, err := os.Open(k.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseKnownHosts(f, k.SkipHashed, k.Logger)
}

// ParseKnownHosts extracts one entry per usable host name.
//
// Skipped: comments, blank lines, @cert-authority and @revoked lines,
// wildcard and negated patterns, bare IP addresses, malformed lines, and
// hashed names when skipHashed is set. "[host]:port" becomes name
// "host:port" with a matching -p connection target; port 22 collapses to
// the plain host. Duplicate names keep their first occurrence.
func ParseKnownHosts(r io.Reader, skipHashed bool, logger *slog.Logger) ([]core.HostEntry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var entries []core.HostEntry
	seen := make(map[string]bool)
	malformed := 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		marker, hosts, _, _, _, err := ssh.ParseKnownHosts(scanner.Bytes())
		if errors.Is(err, io.EOF) {
			continue // blank or comment
		}
		if err != nil {
			malformed++
			logger.Debug("skipping malformed known_hosts line", "line", lineNo, "err", err)
			continue
		}
		if marker != "" {
			continue
		}
		for _, h := range hosts {
			entry, ok := knownHostEntry(h, skipHashed)
			if !ok || seen[entry.Name] {
				continue
			}
			seen[entry.Name] = true
			entries = append(entries, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read known_hosts: %w", err)
	}
	if malformed > 0 {
		logger.Warn("skipped malformed known_hosts lines", "count", malformed)
	}
	return entries, nil
}

func knownHostEntry(h string, skipHashed bool) (core.HostEntry, bool) {
	h = strings.TrimSpace(h)
	if h == "" || strings.ContainsAny(h, "*?!") {
		return core.HostEntry{}, false
	}
	if strings.HasPrefix(h, "|") {
		if skipHashed {
			return core.HostEntry{}, false
		}
		return core.HostEntry{Name: h, ConnectionTarget: "ssh " + h, Source: core.SourceKnownHosts}, true
	}

	host, port := h, 0
	if strings.HasPrefix(h, "[") {
		end := strings.Index(h, "]")
		if end < 0 {
			return core.HostEntry{}, false
		}
		host = h[1:end]
		if rest := h[end+1:]; strings.HasPrefix(rest, ":") {
			p, err := strconv.Atoi(rest[1:])
			if err != nil || p < 1 || p > 65535 {
				return core.HostEntry{}, false
			}
			port = p
		}
	}
	if host == "" || net.ParseIP(host) != nil {
		return core.HostEntry{}, false
	}

	if port == 0 || port == 22 {
		return core.HostEntry{Name: host, ConnectionTarget: "ssh " + host, Source: core.SourceKnownHosts}, true
	}
	return core.HostEntry{
		Name:             host + ":" + strconv.Itoa(port),
		ConnectionTarget: fmt.Sprintf("ssh -p %d %s", port, host),
		Source:           core.SourceKnownHosts,
		Port:             port,
	}, true
}
