package context

import (
	"github.com/hoosh/hoosh/internal/event"
	"github.com/hoosh/hoosh/internal/message"
)

// WarningThreshold is the default token-pressure fraction above which a
// TokenPressureWarning event fires once per turn (spec §4.5).
const WarningThreshold = 0.80

// Manager runs the declared strategy pipeline over a conversation's
// message list at the start of every turn (spec §4.5, §4.6 step 3).
type Manager struct {
	strategies []Strategy
	Accountant *TokenAccountant
}

func NewManager(accountant *TokenAccountant, strategies ...Strategy) *Manager {
	return &Manager{strategies: strategies, Accountant: accountant}
}

// Apply runs every strategy in order and returns the resulting messages.
func (m *Manager) Apply(messages []message.Message) []message.Message {
	for _, s := range m.strategies {
		messages = s.Apply(messages)
	}
	return messages
}

// RecordUsage folds backend-reported token counts into the accountant and
// emits a TokenPressureWarning at most once per turn when pressure crosses
// WarningThreshold.
func (m *Manager) RecordUsage(sender event.Sender, inputTokens, outputTokens int) {
	m.Accountant.Record(inputTokens, outputTokens)
	if m.Accountant.ShouldWarn(WarningThreshold) {
		sender.Emit(event.Event{
			Type:     event.TokenPressureWarning,
			Pressure: m.Accountant.GetTokenPressure(),
		})
	}
}
