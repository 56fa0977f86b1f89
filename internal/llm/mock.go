package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ent0n29/storyteller/internal/session"
)

// MockModel returns deterministic local passages when no provider is configured.
type MockModel struct {
	name string
}

func NewMockModel(name string) *MockModel {
	if strings.TrimSpace(name) == "" {
		name = "mock"
	}
	return &MockModel{name: "mock:" + strings.TrimSpace(name)}
}

func (m *MockModel) Name() string { return m.name }

func (m *MockModel) Complete(ctx context.Context, messages []session.Turn, _ Params) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	ask := ""
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == session.RoleUser {
			ask = strings.TrimSpace(messages[i].Content)
			break
		}
	}
	if ask == "" {
		ask = "a story"
	}
	return fmt.Sprintf("Once upon a time, a curious listener asked about %s, and a friendly machine began to explain.", ask), nil
}
