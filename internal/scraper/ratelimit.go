package scraper

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

const (
	slowThreshold = 5 * time.Second
	minMultiplier = 0.5
	maxMultiplier = 3.0
)

// AdaptiveRateLimiter ajusta a velocidade automaticamente baseado em sinais
// de throttling. As coletas rodam em varias goroutines, entao o estado e
// protegido por mutex e pertence a quem criou o limiter, nao a um global.
type AdaptiveRateLimiter struct {
	mu            sync.Mutex
	totalRequests int
	slowResponses int
	multiplier    float64
}

// NewAdaptiveRateLimiter cria um limiter com multiplicador neutro
func NewAdaptiveRateLimiter() *AdaptiveRateLimiter {
	return &AdaptiveRateLimiter{multiplier: 1.0}
}

// Record registra o tempo de uma resposta concluida. Depois de 10 requisicoes,
// mais de 20% lentas aumenta os delays; menos de 5% lentas reduz.
func (l *AdaptiveRateLimiter) Record(latency time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.totalRequests++
	if latency > slowThreshold {
		l.slowResponses++
	}

	if l.totalRequests > 10 {
		slowRatio := float64(l.slowResponses) / float64(l.totalRequests)
		if slowRatio > 0.2 {
			l.multiplier = min(maxMultiplier, l.multiplier*1.2)
		} else if slowRatio < 0.05 {
			l.multiplier = max(minMultiplier, l.multiplier*0.9)
		}
	}
}

// Multiplier retorna o multiplicador de delay atual
func (l *AdaptiveRateLimiter) Multiplier() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.multiplier
}

// Wait espera um delay aleatorio com distribuicao gaussiana (mais natural
// que delay fixo), escalado pelo multiplicador adaptativo e limitado a
// [0.05s, 5s]. Respeita cancelamento de contexto.
func (l *AdaptiveRateLimiter) Wait(ctx context.Context) error {
	base := rand.NormFloat64()*0.15 + 0.3
	if base < 0.05 {
		base = 0.05
	}

	delay := base * l.Multiplier()
	if delay < 0.05 {
		delay = 0.05
	} else if delay > 5.0 {
		delay = 5.0
	}

	return sleepCtx(ctx, time.Duration(delay*float64(time.Second)))
}

// sleepCtx dorme pelo periodo indicado ou ate o contexto ser cancelado
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
