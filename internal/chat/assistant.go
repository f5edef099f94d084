package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"strategic-forecast/backend-go/internal/models"
)

const (
	SourceLLM       = "llm"
	SourceKnowledge = "knowledge"

	maxMessageLen = 2000
)

var ErrEmptyMessage = errors.New("message is required")

type Assistant struct {
	capability *Capability
	kb         *KnowledgeBase
	timeout    time.Duration
	log        *logrus.Logger
}

func NewAssistant(capability *Capability, kb *KnowledgeBase, timeout time.Duration, log *logrus.Logger) *Assistant {
	if capability == nil {
		capability = Disabled("not configured")
	}
	if kb == nil {
		kb = NewKnowledgeBase()
	}
	if log == nil {
		log = logrus.New()
	}
	return &Assistant{capability: capability, kb: kb, timeout: timeout, log: log}
}

func (a *Assistant) Status() Status {
	return a.capability.Status()
}

// Reply uses the language model when it is ready and falls back to the
// knowledge base on any model failure.
func (a *Assistant) Reply(ctx context.Context, message string) (models.ChatResponse, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return models.ChatResponse{}, ErrEmptyMessage
	}
	if len(message) > maxMessageLen {
		message = message[:maxMessageLen]
	}

	if a.capability.Status().Ready {
		cctx := ctx
		if a.timeout > 0 {
			var cancel context.CancelFunc
			cctx, cancel = context.WithTimeout(ctx, a.timeout)
			defer cancel()
		}
		text, err := a.capability.Generate(cctx, message)
		if err == nil {
			return models.ChatResponse{Response: text, Source: SourceLLM}, nil
		}
		a.log.WithFields(logrus.Fields{"component": "chat", "fallback": true}).WithError(err).Warn("llm reply failed")
	}

	answer, _ := a.kb.Answer(message)
	return models.ChatResponse{Response: answer, Source: SourceKnowledge}, nil
}
