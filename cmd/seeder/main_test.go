package main

import (
	"bytes"
	mrand "math/rand/v2"
	"testing"

	"github.com/poiesic/trident/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostNames(t *testing.T) {
	a := collect(hostNames(mrand.New(mrand.NewPCG(7, 0))), 500)
	b := collect(hostNames(mrand.New(mrand.NewPCG(7, 0))), 500)
	assert.Equal(t, a, b, "same seed, same names")

	seen := make(map[string]bool, len(a))
	for _, n := range a {
		assert.False(t, seen[n], "duplicate %s", n)
		seen[n] = true
	}
}

func TestGeneratedFilesParse(t *testing.T) {
	rng := mrand.New(mrand.NewPCG(1, 0))
	names := collect(hostNames(rng), 50)

	t.Run("ssh_config", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeSSHConfig(&buf, names, rng))
		entries, err := source.ParseSSHConfig(&buf)
		require.NoError(t, err)
		assert.Len(t, entries, len(names))
	})

	t.Run("known_hosts", func(t *testing.T) {
		key, err := newHostKey()
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, writeKnownHosts(&buf, names, key, rng))
		entries, err := source.ParseKnownHosts(&buf, true, nil)
		require.NoError(t, err)
		// IP aliases are dropped; every host name survives.
		assert.Len(t, entries, len(names))
	})
}
