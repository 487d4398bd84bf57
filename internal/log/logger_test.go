// SPDX-License-Identifier: MIT

package log

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigureWritesServiceField(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "studio-test"})

	logger := WithComponent("composer")
	logger.Info().Msg("hello")

	out := buf.String()
	require.Contains(t, out, `"service":"studio-test"`)
	require.Contains(t, out, `"component":"composer"`)
	require.Contains(t, out, `"message":"hello"`)
}

func TestWithContextAddsCorrelationFields(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "studio-test"})

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithSessionID(ctx, "sess-9")

	logger := WithContext(ctx, Base())
	logger.Info().Msg("tagged")

	out := buf.String()
	require.Contains(t, out, `"request_id":"req-1"`)
	require.Contains(t, out, `"session_id":"sess-9"`)
}

func TestWithContextNoFieldsIsPassthrough(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "studio-test"})

	logger := WithContext(context.Background(), Base())
	logger.Info().Msg("plain")

	require.False(t, strings.Contains(buf.String(), "request_id"))
}
