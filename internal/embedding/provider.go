// Package embedding adapts external text-to-vector providers behind a paced,
// failure-tolerant interface.
package embedding

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

var (
	ErrEmptyText         = errors.New("empty text")
	ErrMalformedResponse = errors.New("malformed embedding response")
	ErrRateLimited       = errors.New("rate limited")
)

// Provider turns non-empty text into a fixed-length vector.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Paced routes every call of an underlying Provider through one Pacer.
type Paced struct {
	provider Provider
	pacer    *Pacer
}

func NewPaced(p Provider, pacer *Pacer) *Paced {
	return &Paced{provider: p, pacer: pacer}
}

func (p *Paced) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	var vec []float32
	err := p.pacer.Do(ctx, func(ctx context.Context) error {
		var err error
		vec, err = p.provider.Embed(ctx, text)
		return err
	})
	if err != nil {
		return nil, err
	}
	return vec, nil
}

// TryEmbed calls p and reports whether a vector was produced. Failures are
// logged and turned into a skip; empty text never reaches the provider.
func TryEmbed(ctx context.Context, p Provider, text string, logger *zap.Logger) (vec []float32, ok bool) {
	if text == "" {
		return nil, false
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Embedding provider panicked", zap.Any("panic", r))
			vec, ok = nil, false
		}
	}()

	vec, err := p.Embed(ctx, text)
	if err != nil {
		logger.Warn("Embedding skipped", zap.Error(err), zap.Int("text_length", len(text)))
		return nil, false
	}
	if len(vec) == 0 {
		logger.Warn("Embedding skipped", zap.Error(ErrMalformedResponse))
		return nil, false
	}
	return vec, true
}
