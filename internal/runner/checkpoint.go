package runner

import (
	"encoding/csv"
	"os"

	"github.com/samuelCriap/centralbuybox/internal/models"
)

// Cabecalho do arquivo de checkpoint, mesmo formato da tabela produtos
var checkpointHeader = []string{
	"codigo_produto", "sku_seller", "nome_esperado", "link", "site_disponivel",
	"vendedor_1", "preco_1", "frete_1",
	"vendedor_2", "preco_2", "frete_2",
	"vendedor_3", "preco_3", "frete_3",
	"status_final", "data_verificacao",
}

// writeCheckpoint grava um snapshot completo da tabela em CSV apos cada lote.
// E so para recuperacao manual depois de um crash; nunca e lido de volta
// automaticamente. A escrita vai para um arquivo temporario e so substitui o
// checkpoint anterior via rename, para um crash no meio da escrita nao
// corromper o unico artefato de recuperacao.
func writeCheckpoint(path string, products []models.Product) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	write := func() error {
		if err := w.Write(checkpointHeader); err != nil {
			return err
		}
		for i := range products {
			p := &products[i]
			row := []string{
				p.ProductCode, p.SellerSKU, p.ExpectedName, p.Link, p.Available,
				p.Offers[0].Seller, p.Offers[0].Price, p.Offers[0].Shipping,
				p.Offers[1].Seller, p.Offers[1].Price, p.Offers[1].Shipping,
				p.Offers[2].Seller, p.Offers[2].Price, p.Offers[2].Shipping,
				p.FinalStatus, p.CheckedAt,
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()
	}

	if err := write(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
