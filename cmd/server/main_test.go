package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCommand(t *testing.T) {
	root := newRootCmd()

	names := make([]string, 0, len(root.Commands()))
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "migrate"}, names)
	assert.NotNil(t, root.RunE)
}

func TestMigrate_FailsWithoutConfig(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("SPOTIFY_CLIENT_ID", "")

	err := runMigrate(context.Background())
	assert.ErrorContains(t, err, "load config")
}
