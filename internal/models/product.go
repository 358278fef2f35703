package models

// Status final de uma verificacao de produto
const (
	StatusOK         = "OK"
	StatusSemEstoque = "SEM ESTOQUE"
	StatusFalha      = "FALHA"
	StatusErroSKU    = "Erro - SKU nao encontrado"
)

// Sentinelas usadas nas colunas de oferta
const (
	Ausente     = "-"
	FreteGratis = "Gratis"
	FretePago   = "Pago"
)

// DataFormato e o formato usado em data_verificacao, data_coleta e data_backup
const DataFormato = "02/01/2006 15:04:05"

// Offer representa a oferta de um vendedor (nome, preco e frete como texto,
// com "-" quando ausente)
type Offer struct {
	Seller   string
	Price    string
	Shipping string
}

// EmptyOffer retorna um slot de oferta vazio
func EmptyOffer() Offer {
	return Offer{Seller: Ausente, Price: Ausente, Shipping: Ausente}
}

// Product representa uma linha da tabela produtos
type Product struct {
	ID           int64
	ProductCode  string
	SellerSKU    string
	ExpectedName string
	Link         string
	Available    string // "Sim" / "Nao"
	Offers       [3]Offer
	FinalStatus  string
	CheckedAt    string
}

// NeedsRetry indica se o produto ainda e elegivel para nova tentativa
func (p *Product) NeedsRetry() bool {
	switch p.FinalStatus {
	case "", "TIMEOUT", "ERRO", StatusFalha:
		return true
	}
	return false
}

// HistoryRecord representa uma linha da tabela historico
type HistoryRecord struct {
	ID           int64
	ProductCode  string
	ExpectedName string
	Link         string
	Available    string
	Offers       [3]Offer
	FinalStatus  string
	CheckedAt    string
	CollectedAt  string
}

// BackupRecord representa uma linha da tabela historico_backup
type BackupRecord struct {
	HistoryRecord
	ArchivedAt string
}
