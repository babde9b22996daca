package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter(&buf)

	l.Info("render", "done")
	l.Warn("qr", "placeholder used")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Regexp(t, `^\d{2}:\d{2}:\d{2} INFO  \[RENDER    \] done$`, lines[0])
	assert.Contains(t, lines[1], "WARN  [QR        ] placeholder used")
}

func TestSpecializedHelpers(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter(&buf)

	l.LogRender("BATCH", "all-tickets-2025-03-10.pdf", "2 ticket(s)")
	l.LogAPI("POST", "/api/tickets/document", "200", "12ms")
	l.LogKafka("PUBLISHED", "zafo.tickets.document_generated", "ticket-1.pdf")
	l.LogDatabase("MIGRATE", "schema_migrations", "schema at version 1")
	l.LogSecurity("TOKEN_REJECTED", "expired")

	out := buf.String()
	assert.Contains(t, out, "[RENDER    ] [BATCH] all-tickets-2025-03-10.pdf - 2 ticket(s)")
	assert.Contains(t, out, "[API       ] POST /api/tickets/document - 200 (12ms)")
	assert.Contains(t, out, "[KAFKA     ] [PUBLISHED] zafo.tickets.document_generated - ticket-1.pdf")
	assert.Contains(t, out, "[DATABASE  ] [MIGRATE] schema_migrations - schema at version 1")
	assert.Contains(t, out, "WARN  [SECURITY  ] [TOKEN_REJECTED] expired")
}

func TestConcurrentWritesStayWhole(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l.Debug("TEST", fmt.Sprintf("message %d", i))
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 20)
	for _, line := range lines {
		assert.Contains(t, line, "DEBUG [TEST      ] message ")
	}
}

func TestNewLoggerWritesJSONFile(t *testing.T) {
	t.Chdir(t.TempDir())

	l := NewLogger()
	l.Error("database", "insert failed")
	l.Close()

	name := filepath.Join("logs", fmt.Sprintf("ticket-documents-%s.log", time.Now().Format("2006-01-02")))
	raw, err := os.ReadFile(name)
	require.NoError(t, err)

	var found bool
	for _, line := range strings.Split(strings.TrimSpace(string(raw)), "\n") {
		var entry LogEntry
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry.Message == "insert failed" {
			found = true
			assert.Equal(t, "ERROR", entry.Level)
			assert.Equal(t, "DATABASE", entry.Category)
			assert.Equal(t, "logger_test.go", entry.File)
		}
	}
	assert.True(t, found)
}
