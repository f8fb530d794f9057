package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jangala-dev/tinygo-uartecho/echo"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "uartecho.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
serial:
  device: /dev/ttyUSB0
  baud: 57600
  read_timeout: 250ms
log:
  level: DEBUG
  format: json
  outputs: [stdout]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyUSB0", cfg.Serial.Device)
	assert.Equal(t, uint32(57600), cfg.Serial.Baud)
	assert.Equal(t, 250*time.Millisecond, cfg.Serial.ReadTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, []string{"stdout"}, cfg.Log.Outputs)
}

func TestLoad_DefaultsAndClamp(t *testing.T) {
	path := writeFile(t, `
serial:
  device: /dev/ttyACM0
  baud: 4000000
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, echo.MaxBaudRate, cfg.Serial.Baud)
	assert.Equal(t, defaultReadTimeout, cfg.Serial.ReadTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, []string{"stderr"}, cfg.Log.Outputs)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeFile(t, `
serial:
  device: /dev/ttyUSB0
`)
	t.Setenv("UARTECHO_SERIAL_DEVICE", "/dev/ttyUSB7")
	t.Setenv("UARTECHO_SERIAL_BAUD", "38400")
	t.Setenv("UARTECHO_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB7", cfg.Serial.Device)
	assert.Equal(t, uint32(38400), cfg.Serial.Baud)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	path := writeFile(t, `
serial:
  device: COM3
`)
	t.Setenv("UARTECHO_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "COM3", cfg.Serial.Device)
}

func TestLoad_MissingDevice(t *testing.T) {
	path := writeFile(t, `
log:
  level: info
`)
	_, err := Load(path)
	assert.ErrorIs(t, err, ErrNoDevice)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate_RejectsBadLog(t *testing.T) {
	cfg := Default()
	cfg.Serial.Device = "/dev/ttyUSB0"
	cfg.Log.Level = "loud"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Serial.Device = "/dev/ttyUSB0"
	cfg.Log.Format = "xml"
	assert.Error(t, cfg.Validate())
}

func TestLoad_OptionsApplyBeforeValidation(t *testing.T) {
	path := writeFile(t, `
serial:
  baud: 9600
`)
	cfg, err := Load(path, func(c *Config) { c.Serial.Device = "/dev/ttyS1" })
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyS1", cfg.Serial.Device)
	assert.Equal(t, uint32(9600), cfg.Serial.Baud)
}
