package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"universe-gateway/core"
	"universe-gateway/core/security"
)

func TestEncryptSecret(t *testing.T) {
	const key = "0123456789abcdef"
	var out bytes.Buffer
	require.NoError(t, encryptSecret(strings.NewReader("  my-api-key\n"), &out, key))

	enc := strings.TrimSpace(out.String())
	assert.True(t, security.IsEncrypted(enc))

	p, err := security.NewAESSecretProvider(key)
	require.NoError(t, err)
	plain, err := p.Decrypt(enc)
	require.NoError(t, err)
	assert.Equal(t, "my-api-key", plain)
}

func TestEncryptSecret_Errors(t *testing.T) {
	assert.Error(t, encryptSecret(strings.NewReader("x"), &bytes.Buffer{}, ""))
	assert.Error(t, encryptSecret(strings.NewReader("x"), &bytes.Buffer{}, "short"))
	assert.Error(t, encryptSecret(strings.NewReader("   "), &bytes.Buffer{}, "0123456789abcdef"))
}

func TestNewLogger(t *testing.T) {
	log, closeLog, err := newLogger(&core.Config{LogLevel: "debug"})
	require.NoError(t, err)
	defer closeLog()
	assert.Equal(t, "debug", log.GetLevel().String())

	path := t.TempDir() + "/gateway.log"
	log, closeLog, err = newLogger(&core.Config{LogLevel: "bogus", LogFile: path, LogFileMaxMB: 1})
	require.NoError(t, err)
	log.Info("hello")
	closeLog()
	assert.Equal(t, "info", log.GetLevel().String())
}
