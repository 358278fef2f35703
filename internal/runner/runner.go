package runner

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samuelCriap/centralbuybox/config"
	"github.com/samuelCriap/centralbuybox/internal/database"
	"github.com/samuelCriap/centralbuybox/internal/models"
	"github.com/samuelCriap/centralbuybox/internal/scraper"
)

// Notifier recebe o resumo final da coleta (implementado por notify.Notifier)
type Notifier interface {
	SendSummary(text string) error
}

// Runner orquestra a coleta completa: tentativas, lotes, concorrencia,
// checkpoint e persistencia final
type Runner struct {
	db        *database.DB
	collector *scraper.Collector
	cfg       *config.Config
	notifier  Notifier // opcional, pode ser nil
}

// New cria um runner com as dependencias ja montadas
func New(db *database.DB, collector *scraper.Collector, cfg *config.Config, notifier Notifier) *Runner {
	return &Runner{db: db, collector: collector, cfg: cfg, notifier: notifier}
}

// resultado de um item, entregue em ordem de conclusao
type itemResult struct {
	idx       int
	res       scraper.Result
	checkedAt string // vazio quando o item nem chegou a ser coletado
}

// Run executa a coleta inteira. Falhas de itens individuais nunca abortam a
// execucao; so a leitura inicial da tabela e fatal.
func (r *Runner) Run(ctx context.Context) error {
	products, err := r.db.LoadProducts()
	if err != nil {
		return fmt.Errorf("ler tabela de produtos: %w", err)
	}
	if len(products) == 0 {
		log.Println("[AVISO] Nenhum produto encontrado no banco. Importe produtos primeiro.")
		return nil
	}

	// ID de sessao opaco, constante durante a execucao
	sessionID := strings.ReplaceAll(uuid.NewString(), "-", "")[:16]

	log.Printf("[INFO] Total de produtos a verificar: %d", len(products))
	log.Printf("[INFO] Modo: PDP API com protecao anti-deteccao")
	log.Printf("[INFO] Concorrencia: %d | Lote: %d", r.cfg.Concurrency, r.cfg.BatchSize)
	log.Printf("[INFO] Session ID: %s", sessionID)

	pending := make([]int, len(products))
	for i := range products {
		pending[i] = i
	}

	for attempt := 1; attempt <= r.cfg.MaxAttempts && len(pending) > 0; attempt++ {
		log.Printf("[RETRY] Iniciando tentativa %d/%d - %d itens", attempt, r.cfg.MaxAttempts, len(pending))

		// Embaralha para nao seguir ordem previsivel de crawling
		rand.Shuffle(len(pending), func(i, j int) {
			pending[i], pending[j] = pending[j], pending[i]
		})

		for start := 0; start < len(pending); start += r.cfg.BatchSize {
			end := min(start+r.cfg.BatchSize, len(pending))
			subset := pending[start:end]
			log.Printf("[LOTE] Processando lote %d (%d itens)...", start/r.cfg.BatchSize+1, len(subset))

			r.processBatch(ctx, products, subset, sessionID)

			if err := writeCheckpoint(r.cfg.CheckpointPath, products); err != nil {
				log.Printf("[AVISO] Falha ao gravar checkpoint: %v", err)
			}

			if end < len(pending) {
				pause := r.cfg.BatchPause + randJitter(r.cfg.BatchPause)
				log.Printf("[PAUSA] Aguardando %.1fs antes do proximo lote...", pause.Seconds())
				if sleepCtx(ctx, pause) != nil {
					break
				}
			}
		}

		pending = pending[:0]
		for i := range products {
			if products[i].NeedsRetry() {
				pending = append(pending, i)
			}
		}
		log.Printf("[RETRY] Itens para proxima tentativa: %d", len(pending))

		if len(pending) > 0 && attempt < r.cfg.MaxAttempts {
			log.Printf("[PAUSA] Aguardando %.0fs antes da proxima tentativa...", r.cfg.PassPause.Seconds())
			if sleepCtx(ctx, r.cfg.PassPause) != nil {
				break
			}
		}
	}

	// Execucao cancelada nao persiste nem vira historico: o ultimo
	// checkpoint gravado e o ponto de recuperacao
	if ctx.Err() != nil {
		log.Println("[AVISO] Execucao interrompida; tabela e historico nao foram atualizados.")
		return nil
	}

	// Persistencia final: erro aqui nao e fatal, o checkpoint e a rede de seguranca
	if err := r.db.UpdateProductResults(products); err != nil {
		log.Printf("[ERRO] Falha ao salvar tabela de produtos: %v", err)
	}
	if err := writeCheckpoint(r.cfg.CheckpointPath, products); err != nil {
		log.Printf("[AVISO] Falha ao gravar checkpoint final: %v", err)
	}

	summary := summarize(products)
	log.Print(summary)

	log.Println("[HIST] Salvando historico...")
	if err := r.db.AppendHistory(products, r.cfg.RetentionDays); err != nil {
		log.Printf("[ERRO] Falha ao atualizar historico: %v", err)
	} else {
		log.Println("[HIST] Historico atualizado com sucesso!")
	}

	if r.notifier != nil {
		if err := r.notifier.SendSummary(summary); err != nil {
			log.Printf("[AVISO] Falha ao enviar notificacao: %v", err)
		}
	}

	return nil
}

// processBatch dispara as coletas do lote sob o limite de concorrencia e
// aplica os resultados na tabela em memoria conforme vao concluindo. So
// esta goroutine escreve na tabela, entao nao ha corrida.
func (r *Runner) processBatch(ctx context.Context, products []models.Product, subset []int, sessionID string) {
	sem := make(chan struct{}, r.cfg.Concurrency)
	results := make(chan itemResult)

	var wg sync.WaitGroup
	for _, idx := range subset {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results <- r.checkProduct(ctx, idx, &products[idx], sessionID)
		}(idx)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	done := 0
	for ir := range results {
		// Coleta interrompida por cancelamento nao tem desfecho: a linha
		// fica como estava e continua elegivel
		if ir.res.Interrupted {
			continue
		}
		p := &products[ir.idx]
		p.Available = ir.res.Available
		p.Offers = ir.res.Offers
		p.FinalStatus = ir.res.FinalStatus
		if ir.checkedAt != "" {
			p.CheckedAt = ir.checkedAt
		}
		done++
	}
	log.Printf("[LOTE] %d itens concluidos", done)
}

// checkProduct verifica um unico produto. Link sem SKU extraivel vira um
// status de erro na linha, sem derrubar o lote.
func (r *Runner) checkProduct(ctx context.Context, idx int, p *models.Product, sessionID string) itemResult {
	sku := scraper.ExtractSKU(strings.TrimSpace(p.Link))
	if sku == "" {
		return itemResult{
			idx: idx,
			res: scraper.Result{
				Available:   "Nao",
				FinalStatus: models.StatusErroSKU,
				Offers:      [3]models.Offer{models.EmptyOffer(), models.EmptyOffer(), models.EmptyOffer()},
			},
		}
	}
	res := r.collector.Collect(ctx, sku, sessionID)
	return itemResult{idx: idx, res: res, checkedAt: time.Now().Format(models.DataFormato)}
}

// summarize monta o resumo final da execucao
func summarize(products []models.Product) string {
	var ok, semEstoque, falhas, v2, v3, freteGratis int
	for i := range products {
		switch products[i].FinalStatus {
		case models.StatusOK:
			ok++
		case models.StatusSemEstoque:
			semEstoque++
		case models.StatusFalha, "ERRO", "TIMEOUT":
			falhas++
		}
		if products[i].Offers[1].Seller != models.Ausente {
			v2++
		}
		if products[i].Offers[2].Seller != models.Ausente {
			v3++
		}
		if products[i].Offers[0].Shipping == models.FreteGratis {
			freteGratis++
		}
	}

	var b strings.Builder
	b.WriteString("\n=== Resumo final ===\n")
	fmt.Fprintf(&b, "   OK.............. %d\n", ok)
	fmt.Fprintf(&b, "   Sem estoque..... %d\n", semEstoque)
	fmt.Fprintf(&b, "   Falhas.......... %d\n", falhas)
	fmt.Fprintf(&b, "   Com Vendedor 2.. %d\n", v2)
	fmt.Fprintf(&b, "   Com Vendedor 3.. %d\n", v3)
	fmt.Fprintf(&b, "   Frete Gratis.... %d", freteGratis)
	return b.String()
}

// randJitter devolve um jitter uniforme em [0, limit)
func randJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(limit)))
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
