package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"strategic-forecast/backend-go/internal/config"
)

var ErrNotReady = errors.New("chat capability not ready")

// Generator produces free text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Status struct {
	Ready  bool   `json:"ready"`
	Reason string `json:"reason,omitempty"`
}

// Capability is built once at startup; its status never changes afterwards.
type Capability struct {
	gen    Generator
	status Status
}

func NewCapability(gen Generator) *Capability {
	if gen == nil {
		return Disabled("no generator configured")
	}
	return &Capability{gen: gen, status: Status{Ready: true}}
}

func Disabled(reason string) *Capability {
	return &Capability{status: Status{Ready: false, Reason: reason}}
}

// FromConfig builds the Gemini capability, or a disabled one explaining why
// it could not be built.
func FromConfig(ctx context.Context, cfg config.ChatConfig, log *logrus.Logger) *Capability {
	if log == nil {
		log = logrus.New()
	}
	fields := logrus.Fields{"component": "chat", "model": cfg.Model}
	if strings.TrimSpace(cfg.APIKey) == "" {
		log.WithFields(fields).Info("chat api key not set, knowledge base only")
		return Disabled("api key not configured")
	}
	gen, err := NewGemini(ctx, cfg)
	if err != nil {
		log.WithFields(fields).WithError(err).Warn("gemini client unavailable, knowledge base only")
		return Disabled(err.Error())
	}
	log.WithFields(fields).Info("gemini chat capability ready")
	return NewCapability(gen)
}

func (c *Capability) Status() Status {
	return c.status
}

func (c *Capability) Generate(ctx context.Context, prompt string) (string, error) {
	if !c.status.Ready {
		return "", ErrNotReady
	}
	return c.gen.Generate(ctx, prompt)
}
