package agent

import (
	"context"
	"fmt"
	"testing"

	"github.com/syncwise-ai/syncwise/pkg/domain"
)

func TestExecuteAllPreservesOrder(t *testing.T) {
	tools := &echoTools{}
	var calls []domain.ToolCall
	for i := 0; i < 10; i++ {
		calls = append(calls, domain.ToolCall{ID: fmt.Sprintf("tc%d", i), Name: fmt.Sprintf("tool%d", i)})
	}

	results := ExecuteAll(context.Background(), tools, calls)
	if len(results) != len(calls) {
		t.Fatalf("len = %d, want %d", len(results), len(calls))
	}
	for i, r := range results {
		if r.ToolCallID != calls[i].ID {
			t.Errorf("results[%d].ToolCallID = %q, want %q", i, r.ToolCallID, calls[i].ID)
		}
	}
}

func TestExecuteAllEmpty(t *testing.T) {
	results := ExecuteAll(context.Background(), &echoTools{}, nil)
	if len(results) != 0 {
		t.Errorf("len = %d, want 0", len(results))
	}
}
