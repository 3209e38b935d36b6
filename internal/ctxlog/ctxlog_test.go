package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

// TestFromContext verifies the embedded logger is returned and the default
// is used otherwise.
func TestFromContext(t *testing.T) {
	if FromContext(context.Background()) != slog.Default() {
		t.Error("expected default logger for a bare context")
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := WithLogger(context.Background(), logger)

	FromContext(ctx).Info("hello", "adapter", "vsdbg")
	if !strings.Contains(buf.String(), "adapter=vsdbg") {
		t.Errorf("expected log through embedded logger, got %q", buf.String())
	}
}
