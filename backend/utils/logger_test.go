package utils

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := InitLogger(LoggerConfig{Format: "json", Output: &buf})
	logger.Printf("course %d published", 7)

	var line map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "course 7 published", line["msg"])
	assert.Equal(t, "learning-platform", line["service"])
	assert.NotEmpty(t, line["time"])
}

func TestTextLogger(t *testing.T) {
	var buf bytes.Buffer
	InitLogger(LoggerConfig{Output: &buf}).Print("hola")
	assert.Contains(t, buf.String(), "[Learning Platform] ")
	assert.Contains(t, buf.String(), "hola")
}
