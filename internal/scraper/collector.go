package scraper

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/samuelCriap/centralbuybox/internal/models"
)

// Result e o resultado da coleta de um produto: disponibilidade no site,
// ate tres ofertas e o status final
type Result struct {
	Available   string // "Sim" / "Nao"
	FinalStatus string
	Offers      [3]models.Offer

	// Interrupted indica que a execucao foi cancelada antes de um desfecho.
	// Nao e um status: a linha fica intocada, FALHA so vale para tentativas
	// realmente esgotadas.
	Interrupted bool
}

func emptyResult() Result {
	return Result{
		Available:   "Nao",
		FinalStatus: models.StatusSemEstoque,
		Offers:      [3]models.Offer{models.EmptyOffer(), models.EmptyOffer(), models.EmptyOffer()},
	}
}

func interruptedResult() Result {
	res := emptyResult()
	res.Interrupted = true
	return res
}

// Collector consulta a PDP API de um produto e extrai ate tres vendedores,
// com as protecoes anti-deteccao (headers aleatorios, delay adaptativo,
// timeout variavel e retry com backoff)
type Collector struct {
	client  *http.Client
	limiter *AdaptiveRateLimiter
	baseURL string

	// Tempos base do retry. Os valores de producao vem de NewCollector;
	// testes encurtam para nao esperar segundos reais.
	MaxAttempts  int
	BlockBackoff time.Duration // 403: (tentativa+1) * base + jitter
	RateCooldown time.Duration // 429: espera fixa + jitter
	TimeoutWait  time.Duration // espera apos timeout
	ErrorWait    time.Duration // espera apos erro de transporte
	TimeoutBase  time.Duration // base do timeout por requisicao
}

// NewCollector cria um coletor com os tempos de producao
func NewCollector(client *http.Client, limiter *AdaptiveRateLimiter, baseURL string) *Collector {
	return &Collector{
		client:       client,
		limiter:      limiter,
		baseURL:      baseURL,
		MaxAttempts:  3,
		BlockBackoff: 3 * time.Second,
		RateCooldown: 10 * time.Second,
		TimeoutWait:  2 * time.Second,
		ErrorWait:    1 * time.Second,
		TimeoutBase:  15 * time.Second,
	}
}

// Collect coleta as ofertas de um SKU. Nunca retorna erro: qualquer falha
// vira um status no resultado para o orquestrador decidir o retry.
func (c *Collector) Collect(ctx context.Context, sku, sessionID string) Result {
	res := emptyResult()
	apiURL := fmt.Sprintf("%s/pdp-api/api/product/%s", c.baseURL, sku)

	// Delay aleatorio antes da requisicao
	if err := c.limiter.Wait(ctx); err != nil {
		return interruptedResult()
	}

attempts:
	for attempt := 0; attempt < c.MaxAttempts; attempt++ {
		start := time.Now()
		status, body, err := c.get(ctx, apiURL, RandomHeaders(c.baseURL, sku, sessionID))
		if err != nil {
			wait := c.ErrorWait
			if isTimeout(err) {
				wait = c.TimeoutWait
			}
			if sleepCtx(ctx, wait) != nil {
				break
			}
			continue
		}

		switch status {
		case http.StatusOK:
			res = c.parseProduct(ctx, body, sku, sessionID)
			c.limiter.Record(time.Since(start))
			return res

		case http.StatusForbidden:
			// Bloqueio brando: espera crescente e tenta com headers novos
			wait := time.Duration(attempt+1)*c.BlockBackoff + randBetween(c.BlockBackoff/3, c.BlockBackoff)
			if sleepCtx(ctx, wait) != nil {
				break attempts
			}

		case http.StatusTooManyRequests:
			// Rate limit: espera bem mais, sem escalar por tentativa
			wait := c.RateCooldown + randBetween(c.RateCooldown/10, c.RateCooldown/2)
			if sleepCtx(ctx, wait) != nil {
				break attempts
			}

		default:
			// Qualquer outro status e "sem oferta confirmado", nao transiente
			res.FinalStatus = models.StatusSemEstoque
			return res
		}
	}

	// Cancelamento no meio do retry nao e esgotamento de tentativas
	if ctx.Err() != nil {
		return interruptedResult()
	}

	res.FinalStatus = models.StatusFalha
	return res
}

// parseProduct extrai ate tres ofertas disponiveis, na ordem do payload
func (c *Collector) parseProduct(ctx context.Context, body []byte, sku, sessionID string) Result {
	res := emptyResult()

	var payload pdpResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return res
	}

	res.Available = "Sim"

	if payload.CurrentProduct == nil || len(payload.CurrentProduct.Prices) == 0 {
		return res
	}

	slot := 0
	for i := range payload.CurrentProduct.Prices {
		if slot >= 3 {
			break
		}
		offer := &payload.CurrentProduct.Prices[i]
		if !offer.isAvailable() {
			continue
		}

		sellerName, sellerID := offer.sellerInfo()
		if sellerName != "" {
			res.Offers[slot].Seller = truncate(sellerName, 50)
		}

		// Preco real por vendedor; em caso de falha usa o da API principal
		price := "-"
		if sellerID != "" {
			if p := c.fetchSellerPrice(ctx, sku, sellerID, sessionID); p != nil && *p != 0 {
				price = formatPrice(p)
			}
		}
		if price == "-" {
			if p := offer.priceInCents(); p != nil && *p != 0 {
				price = formatPrice(p)
			}
		}
		res.Offers[slot].Price = price

		switch {
		case offer.FreeShipping:
			res.Offers[slot].Shipping = models.FreteGratis
		case offer.Shipping != nil && *offer.Shipping != 0:
			res.Offers[slot].Shipping = formatPrice(offer.Shipping)
		case offer.ShippingCost != nil && *offer.ShippingCost != 0:
			res.Offers[slot].Shipping = formatPrice(offer.ShippingCost)
		default:
			res.Offers[slot].Shipping = models.FretePago
		}

		slot++
	}

	if res.Offers[0].Seller != models.Ausente && res.Offers[0].Price != models.Ausente {
		res.FinalStatus = models.StatusOK
	}
	return res
}

// fetchSellerPrice consulta a API de preco por vendedor, que retorna o valor
// final com todos os descontos. Qualquer falha retorna nil e o chamador usa
// o preco da API principal.
func (c *Collector) fetchSellerPrice(ctx context.Context, sku, sellerID, sessionID string) *float64 {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil
	}
	url := fmt.Sprintf("%s/frdmprcsts/%s/%s/lazy", c.baseURL, sku, sellerID)
	status, body, err := c.get(ctx, url, RandomHeaders(c.baseURL, sku, sessionID))
	if err != nil || status != http.StatusOK {
		return nil
	}
	var payload sellerPriceResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil
	}
	return payload.price()
}

// get faz um GET com timeout variavel e devolve status e corpo decodificado
func (c *Collector) get(ctx context.Context, url string, headers http.Header) (int, []byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.requestTimeout())
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header = headers

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := decodeBody(resp)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

// requestTimeout varia o timeout por requisicao para simular diferentes
// velocidades de rede: gaussiana em torno da base, limitada a [base/3, base*2]
func (c *Collector) requestTimeout() time.Duration {
	base := c.TimeoutBase.Seconds()
	t := rand.NormFloat64()*(base/5) + base
	if t < base/3 {
		t = base / 3
	} else if t > base*2 {
		t = base * 2
	}
	return time.Duration(t * float64(time.Second))
}

// decodeBody descomprime o corpo conforme o Content-Encoding. Como os headers
// sao montados a mao (Accept-Encoding incluso), o http.Transport nao faz a
// descompressao automatica.
func decodeBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		reader = gz
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		fr := flate.NewReader(resp.Body)
		defer fr.Close()
		reader = fr
	}
	return io.ReadAll(reader)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func randBetween(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rand.Int63n(int64(hi-lo)))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
