// Utilitario para popular a tabela produtos a partir de um CSV.
// A coleta em si nunca cria linhas; este import e o fluxo separado que
// alimenta a base.
package main

import (
	"encoding/csv"
	"flag"
	"io"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/samuelCriap/centralbuybox/config"
	"github.com/samuelCriap/centralbuybox/internal/database"
	"github.com/samuelCriap/centralbuybox/internal/models"
)

func main() {
	csvPath := flag.String("csv", "", "arquivo CSV com colunas codigo_produto,sku_seller,nome_esperado,link")
	flag.Parse()

	if *csvPath == "" {
		log.Fatal("Uso: importar -csv <arquivo.csv>")
	}

	if err := godotenv.Load(); err != nil {
		log.Println("Arquivo .env nao encontrado, usando variaveis de ambiente do sistema")
	}
	cfg := config.Load()

	products, err := readCSV(*csvPath)
	if err != nil {
		log.Fatalf("Erro ao ler CSV: %v", err)
	}
	if len(products) == 0 {
		log.Fatal("[ERRO] Nenhum registro encontrado no CSV.")
	}
	log.Printf("[IMPORT] %d registros encontrados em %s", len(products), *csvPath)

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Erro ao inicializar banco de dados: %v", err)
	}
	defer db.Close()

	if err := db.InsertProducts(products); err != nil {
		log.Fatalf("Erro ao inserir produtos: %v", err)
	}
	log.Printf("[OK] %d produtos importados", len(products))
}

// readCSV le o arquivo de import. A primeira linha e cabecalho; as colunas
// esperadas sao codigo_produto, sku_seller, nome_esperado e link, nessa ordem.
func readCSV(path string) ([]models.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var products []models.Product
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if first {
			first = false
			continue
		}
		if len(record) < 4 {
			continue
		}
		p := models.Product{
			ProductCode:  record[0],
			SellerSKU:    record[1],
			ExpectedName: record[2],
			Link:         record[3],
			Available:    "Nao",
			Offers:       [3]models.Offer{models.EmptyOffer(), models.EmptyOffer(), models.EmptyOffer()},
		}
		products = append(products, p)
	}
	return products, nil
}
