package logging

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestConsoleLogger_Verbose_WhenEnabled(t *testing.T) {
	var buf bytes.Buffer
	NewWriterLogger(&buf, true).Verbose("test message: %s", "value")
	assert.Equal(t, "[VERBOSE] test message: value\n", buf.String())
}

func TestConsoleLogger_Verbose_WhenDisabled(t *testing.T) {
	var buf bytes.Buffer
	NewWriterLogger(&buf, false).Verbose("test message: %s", "value")
	assert.Empty(t, buf.String())
}

func TestConsoleLogger_Info(t *testing.T) {
	var buf bytes.Buffer
	NewWriterLogger(&buf, false).Info("info message: %s", "value")
	assert.Equal(t, "info message: value\n", buf.String())
}

func TestConsoleLogger_Error(t *testing.T) {
	var buf bytes.Buffer
	NewWriterLogger(&buf, false).Error("error message: %s", "value")
	assert.Equal(t, "[ERROR] error message: value\n", buf.String())
}

func TestConsoleLogger_NoArgsKeepsPercent(t *testing.T) {
	var buf bytes.Buffer
	NewWriterLogger(&buf, false).Info("100% done")
	assert.Equal(t, "100% done\n", buf.String())
}

func TestConsoleLogger_WithRun(t *testing.T) {
	var buf bytes.Buffer
	id := uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e")
	logger := NewWriterLogger(&buf, true).WithRun(id)

	logger.Verbose("v")
	logger.Info("i")
	logger.Error("e")

	assert.Equal(t, "[VERBOSE] [0f8fad5b] v\ni\n[ERROR] [0f8fad5b] e\n", buf.String())
}

func TestConsoleLogger_ConcurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	base := NewWriterLogger(&buf, true)
	tagged := base.WithRun(uuid.New())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if n%2 == 0 {
				base.Info("line %d", n)
			} else {
				tagged.Verbose("line %d", n)
			}
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 50)
	for _, line := range lines {
		assert.Contains(t, line, "line ")
	}
	assert.Contains(t, buf.String(), fmt.Sprintf("line %d", 49))
}

func TestNullLogger(t *testing.T) {
	l := NewNullLogger()
	l.Verbose("x")
	l.Info("x")
	l.Error("x")
}
