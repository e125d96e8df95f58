package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ledgerScope/internal/config"
	"ledgerScope/internal/model"
)

func TestForgetDirAllowsRewatch(t *testing.T) {
	root := t.TempDir()
	cards := filepath.Join(root, model.EntityCards)
	require.NoError(t, os.MkdirAll(cards, 0o755))

	watcher, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	defer watcher.Close()

	cfg := config.Config{DataDir: root, Entities: model.DefaultEntities}
	watched := map[string]bool{root: true}

	addStreamDirs(watcher, cfg, watched, zap.NewNop())
	assert.True(t, watched[cards])
	assert.Len(t, watched, 2)

	forgetDir(watched, root, cards+string(filepath.Separator))
	assert.False(t, watched[cards])

	addStreamDirs(watcher, cfg, watched, zap.NewNop())
	assert.True(t, watched[cards], "a recreated stream dir should be watched again")
}

func TestForgetDirKeepsDataDir(t *testing.T) {
	root := t.TempDir()
	watched := map[string]bool{root: true}

	forgetDir(watched, root, root)
	assert.True(t, watched[root])

	forgetDir(watched, root, filepath.Join(root, "unrelated.json"))
	assert.Len(t, watched, 1)
}
