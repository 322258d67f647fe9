package agent

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/syncwise-ai/syncwise/pkg/domain"
	"github.com/syncwise-ai/syncwise/pkg/model"
)

// Tools is the tool set the loop dispatches against. Call must always
// return a result; failures are expressed as error results, not errors.
type Tools interface {
	Defs() []model.ToolDef
	Call(ctx context.Context, call domain.ToolCall) domain.ToolResult
}

// ExecuteAll runs every requested tool call concurrently and returns one
// result per call, in request order.
func ExecuteAll(ctx context.Context, tools Tools, calls []domain.ToolCall) []domain.ToolResult {
	results := make([]domain.ToolResult, len(calls))
	g, ctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			results[i] = tools.Call(ctx, call)
			return nil
		})
	}
	_ = g.Wait()
	return results
}
