// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffAuth Contributors

package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffauth/staffauth/internal/config"
	"github.com/staffauth/staffauth/pkg/errutil"
)

func TestConfigSchemaCommand(t *testing.T) {
	out, _, err := runRoot(t, "config", "schema")
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &schema))
	assert.Equal(t, config.SchemaID, schema["$id"])
}

func TestConfigValidateCommand(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(dir, "good.yaml")
		require.NoError(t, os.WriteFile(path, []byte("store: memory\ntoken_ttl: 30m\n"), 0o600))

		out, _, err := runRoot(t, "config", "validate", path)
		require.NoError(t, err)
		assert.Contains(t, out, "is valid")
	})

	t.Run("unknown key", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("listen_port: 8080\n"), 0o600))

		_, _, err := runRoot(t, "config", "validate", path)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "CONFIG_SCHEMA_INVALID")
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := runRoot(t, "config", "validate", filepath.Join(dir, "absent.yaml"))
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "CONFIG_READ_FAILED")
	})

	t.Run("requires a file argument", func(t *testing.T) {
		_, _, err := runRoot(t, "config", "validate")
		require.Error(t, err)
	})
}
