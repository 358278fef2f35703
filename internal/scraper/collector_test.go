package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samuelCriap/centralbuybox/internal/models"
)

// newTestCollector encurta os tempos de espera para o teste nao dormir
// segundos reais
func newTestCollector(serverURL string) *Collector {
	c := NewCollector(http.DefaultClient, NewAdaptiveRateLimiter(), serverURL)
	c.BlockBackoff = 5 * time.Millisecond
	c.RateCooldown = 10 * time.Millisecond
	c.TimeoutWait = 5 * time.Millisecond
	c.ErrorWait = 5 * time.Millisecond
	c.TimeoutBase = 2 * time.Second
	return c
}

func TestCollectTwoSellers(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/pdp-api/api/product/TEN-1234-001", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"currentProduct":{"prices":[
			{"available":true,"seller":{"name":"Netshoes","id":"NS"},"saleInCents":19990,"freeShipping":true},
			{"available":true,"seller":{"name":"Loja Parceira","id":"LP"},"saleInCents":21500,"shippingCost":1590}
		]}}`)
	})
	mux.HandleFunc("/frdmprcsts/TEN-1234-001/NS/lazy", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"salePrice":18990}`)
	})
	mux.HandleFunc("/frdmprcsts/TEN-1234-001/LP/lazy", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"finalPriceWithoutPaymentBenefitDiscount":20990}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestCollector(srv.URL)
	res := c.Collect(context.Background(), "TEN-1234-001", "sess")

	if res.FinalStatus != models.StatusOK {
		t.Fatalf("status = %q, esperado OK", res.FinalStatus)
	}
	if res.Available != "Sim" {
		t.Fatalf("site disponivel = %q, esperado Sim", res.Available)
	}
	if res.Offers[0].Seller != "Netshoes" || res.Offers[0].Price != "189.90" {
		t.Fatalf("oferta 1 inesperada: %+v", res.Offers[0])
	}
	if res.Offers[0].Shipping != models.FreteGratis {
		t.Fatalf("frete 1 = %q, esperado Gratis", res.Offers[0].Shipping)
	}
	if res.Offers[1].Seller != "Loja Parceira" || res.Offers[1].Price != "209.90" {
		t.Fatalf("oferta 2 inesperada: %+v", res.Offers[1])
	}
	if res.Offers[1].Shipping != "15.90" {
		t.Fatalf("frete 2 = %q, esperado 15.90", res.Offers[1].Shipping)
	}
	if res.Offers[2].Seller != models.Ausente {
		t.Fatalf("oferta 3 deveria estar vazia: %+v", res.Offers[2])
	}
}

func TestCollectSkipsUnavailableOffers(t *testing.T) {
	// 5 ofertas, 2 indisponiveis: preenche exatamente 3 slots mantendo a
	// ordem do payload entre as disponiveis
	mux := http.NewServeMux()
	mux.HandleFunc("/pdp-api/api/product/CAM-9000-123", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"currentProduct":{"prices":[
			{"available":true,"sellerName":"Loja A","listInCents":10000},
			{"available":false,"sellerName":"Loja B","listInCents":9000},
			{"available":true,"sellerName":"Loja C","listInCents":11000},
			{"available":false,"sellerName":"Loja D","listInCents":8000},
			{"available":true,"sellerName":"Loja E","listInCents":12000}
		]}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestCollector(srv.URL)
	res := c.Collect(context.Background(), "CAM-9000-123", "sess")

	want := []string{"Loja A", "Loja C", "Loja E"}
	for i, seller := range want {
		if res.Offers[i].Seller != seller {
			t.Fatalf("slot %d = %q, esperado %q", i+1, res.Offers[i].Seller, seller)
		}
	}
	if res.Offers[0].Price != "100.00" || res.Offers[1].Price != "110.00" || res.Offers[2].Price != "120.00" {
		t.Fatalf("precos inesperados: %+v", res.Offers)
	}
	if res.FinalStatus != models.StatusOK {
		t.Fatalf("status = %q, esperado OK", res.FinalStatus)
	}
}

func TestCollectRateLimitExhaustsAttempts(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestCollector(srv.URL)
	res := c.Collect(context.Background(), "TEN-0000-001", "sess")

	if res.FinalStatus != models.StatusFalha {
		t.Fatalf("status = %q, esperado FALHA", res.FinalStatus)
	}
	if got := hits.Load(); got != 3 {
		t.Fatalf("esperadas 3 tentativas, houve %d", got)
	}
}

func TestCollectForbiddenRetriesThenSucceeds(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= 2 {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		fmt.Fprint(w, `{"currentProduct":{"prices":[{"sellerName":"Loja A","saleInCents":5000}]}}`)
	}))
	defer srv.Close()

	c := newTestCollector(srv.URL)
	res := c.Collect(context.Background(), "TEN-0000-002", "sess")

	if res.FinalStatus != models.StatusOK {
		t.Fatalf("status = %q, esperado OK apos retries de 403", res.FinalStatus)
	}
	if got := hits.Load(); got != 3 {
		t.Fatalf("esperadas 3 requisicoes, houve %d", got)
	}
}

func TestCollectOtherStatusIsSemEstoque(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestCollector(srv.URL)
	res := c.Collect(context.Background(), "TEN-0000-003", "sess")

	if res.FinalStatus != models.StatusSemEstoque {
		t.Fatalf("status = %q, esperado SEM ESTOQUE", res.FinalStatus)
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("status nao-transiente nao deveria ter retry, houve %d requisicoes", got)
	}
}

func TestCollectSellerPriceLookupFallsBack(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/pdp-api/api/product/BOT-5555-010", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"currentProduct":{"prices":[
			{"seller":{"name":"Loja A","id":"LA"},"saleInCents":7790}
		]}}`)
	})
	mux.HandleFunc("/frdmprcsts/BOT-5555-010/LA/lazy", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestCollector(srv.URL)
	res := c.Collect(context.Background(), "BOT-5555-010", "sess")

	if res.Offers[0].Price != "77.90" {
		t.Fatalf("preco deveria cair para o da API principal, veio %q", res.Offers[0].Price)
	}
	if res.FinalStatus != models.StatusOK {
		t.Fatalf("status = %q, esperado OK", res.FinalStatus)
	}
}

func TestCollectNoFirstSellerIsSemEstoque(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"currentProduct":{"prices":[{"available":false,"sellerName":"Loja A","saleInCents":5000}]}}`)
	}))
	defer srv.Close()

	c := newTestCollector(srv.URL)
	res := c.Collect(context.Background(), "TEN-0000-004", "sess")

	if res.FinalStatus != models.StatusSemEstoque {
		t.Fatalf("status = %q, esperado SEM ESTOQUE", res.FinalStatus)
	}
	if res.Available != "Sim" {
		t.Fatalf("site disponivel = %q, esperado Sim (payload valido)", res.Available)
	}
	if res.Offers[0].Seller != models.Ausente {
		t.Fatalf("slot 1 deveria estar vazio: %+v", res.Offers[0])
	}
}

func TestCollectMalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>pagina de bloqueio</html>`)
	}))
	defer srv.Close()

	c := newTestCollector(srv.URL)
	res := c.Collect(context.Background(), "TEN-0000-005", "sess")

	if res.FinalStatus != models.StatusSemEstoque {
		t.Fatalf("payload invalido deveria virar SEM ESTOQUE, veio %q", res.FinalStatus)
	}
	if res.Available != "Nao" {
		t.Fatalf("site disponivel = %q, esperado Nao", res.Available)
	}
}

func TestCollectShippingPagoWhenNoValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"currentProduct":{"prices":[{"sellerName":"Loja A","saleInCents":5000,"freeShipping":false}]}}`)
	}))
	defer srv.Close()

	c := newTestCollector(srv.URL)
	res := c.Collect(context.Background(), "TEN-0000-006", "sess")

	if res.Offers[0].Shipping != models.FretePago {
		t.Fatalf("frete sem valor deveria ser Pago, veio %q", res.Offers[0].Shipping)
	}
}

func TestCollectCanceledBeforeStart(t *testing.T) {
	// Contexto ja cancelado: nenhuma requisicao sai e o resultado e marcado
	// como interrompido, sem virar FALHA
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		fmt.Fprint(w, `{"currentProduct":{"prices":[]}}`)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestCollector(srv.URL)
	res := c.Collect(ctx, "TEN-0000-007", "sess")

	if !res.Interrupted {
		t.Fatalf("resultado deveria estar marcado como interrompido: %+v", res)
	}
	if res.FinalStatus == models.StatusFalha {
		t.Fatalf("cancelamento nao pode virar FALHA (status = %q)", res.FinalStatus)
	}
	if n := atomic.LoadInt64(&hits); n != 0 {
		t.Fatalf("nenhuma requisicao deveria ter saido, saiu %d", n)
	}
}

func TestCollectCanceledDuringRetry(t *testing.T) {
	// Cancelamento no meio do backoff de 429: interrompe sem esgotar as
	// tentativas e sem reportar FALHA
	ctx, cancel := context.WithCancel(context.Background())
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		cancel()
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestCollector(srv.URL)
	res := c.Collect(ctx, "TEN-0000-008", "sess")

	if !res.Interrupted {
		t.Fatalf("resultado deveria estar marcado como interrompido: %+v", res)
	}
	if res.FinalStatus == models.StatusFalha {
		t.Fatalf("cancelamento nao pode virar FALHA (status = %q)", res.FinalStatus)
	}
	if n := atomic.LoadInt64(&hits); n != 1 {
		t.Fatalf("esperada 1 requisicao antes do cancelamento, saiu %d", n)
	}
}

func TestCollectSellerIDWithoutName(t *testing.T) {
	// Objeto seller so com id: a consulta de preco por vendedor ainda
	// acontece, mesmo sem nome para preencher o slot
	var lookups int64
	mux := http.NewServeMux()
	mux.HandleFunc("/pdp-api/api/product/TEN-0000-009", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"currentProduct":{"prices":[{"seller":{"id":"X1"},"saleInCents":5000}]}}`)
	})
	mux.HandleFunc("/frdmprcsts/TEN-0000-009/X1/lazy", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&lookups, 1)
		fmt.Fprint(w, `{"salePrice":4500}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestCollector(srv.URL)
	res := c.Collect(context.Background(), "TEN-0000-009", "sess")

	if n := atomic.LoadInt64(&lookups); n != 1 {
		t.Fatalf("consulta por vendedor deveria ter acontecido 1 vez, aconteceu %d", n)
	}
	if res.Offers[0].Price != "45.00" {
		t.Fatalf("preco deveria vir da consulta por vendedor, veio %q", res.Offers[0].Price)
	}
	if res.Offers[0].Seller != models.Ausente {
		t.Fatalf("vendedor sem nome deveria ficar %q, veio %q", models.Ausente, res.Offers[0].Seller)
	}
	if res.FinalStatus != models.StatusSemEstoque {
		t.Fatalf("sem nome de vendedor o status deveria ser SEM ESTOQUE, veio %q", res.FinalStatus)
	}
}
