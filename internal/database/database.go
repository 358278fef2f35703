package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/samuelCriap/centralbuybox/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

// DB encapsula a conexao com o banco de dados
type DB struct {
	conn *sql.DB
}

// New cria uma nova instancia do banco de dados
func New(dbPath string) (*DB, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("criar pasta do banco: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Modo WAL para melhor concorrencia quando o banco fica em pasta de rede
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=30000",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			log.Printf("[AVISO] Nao foi possivel aplicar %q: %v", p, err)
		}
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

// Close fecha a conexao com o banco de dados
func (db *DB) Close() error {
	return db.conn.Close()
}

// init cria as tabelas necessarias
func (db *DB) init() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS produtos (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			codigo_produto TEXT,
			sku_seller TEXT,
			nome_esperado TEXT,
			link TEXT,
			site_disponivel TEXT,
			vendedor_1 TEXT,
			preco_1 TEXT,
			frete_1 TEXT,
			vendedor_2 TEXT,
			preco_2 TEXT,
			frete_2 TEXT,
			vendedor_3 TEXT,
			preco_3 TEXT,
			frete_3 TEXT,
			status_final TEXT,
			data_verificacao TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS historico (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			codigo_produto TEXT,
			nome_esperado TEXT,
			link TEXT,
			site_disponivel TEXT,
			vendedor_1 TEXT,
			preco_1 TEXT,
			frete_1 TEXT,
			vendedor_2 TEXT,
			preco_2 TEXT,
			frete_2 TEXT,
			vendedor_3 TEXT,
			preco_3 TEXT,
			frete_3 TEXT,
			status_final TEXT,
			data_verificacao TEXT,
			data_coleta TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS historico_backup (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			codigo_produto TEXT,
			nome_esperado TEXT,
			link TEXT,
			site_disponivel TEXT,
			vendedor_1 TEXT,
			preco_1 TEXT,
			frete_1 TEXT,
			vendedor_2 TEXT,
			preco_2 TEXT,
			frete_2 TEXT,
			vendedor_3 TEXT,
			preco_3 TEXT,
			frete_3 TEXT,
			status_final TEXT,
			data_verificacao TEXT,
			data_coleta TEXT,
			data_backup TEXT
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.conn.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// LoadProducts retorna todas as linhas da tabela produtos
func (db *DB) LoadProducts() ([]models.Product, error) {
	rows, err := db.conn.Query(`SELECT id, codigo_produto, sku_seller, nome_esperado, link,
		site_disponivel, vendedor_1, preco_1, frete_1, vendedor_2, preco_2, frete_2,
		vendedor_3, preco_3, frete_3, status_final, data_verificacao FROM produtos`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		cols := []any{
			&p.ID,
			nullStr(&p.ProductCode), nullStr(&p.SellerSKU), nullStr(&p.ExpectedName), nullStr(&p.Link),
			nullStr(&p.Available),
			nullStr(&p.Offers[0].Seller), nullStr(&p.Offers[0].Price), nullStr(&p.Offers[0].Shipping),
			nullStr(&p.Offers[1].Seller), nullStr(&p.Offers[1].Price), nullStr(&p.Offers[1].Shipping),
			nullStr(&p.Offers[2].Seller), nullStr(&p.Offers[2].Price), nullStr(&p.Offers[2].Shipping),
			nullStr(&p.FinalStatus), nullStr(&p.CheckedAt),
		}
		if err := rows.Scan(cols...); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// InsertProducts insere novas linhas na tabela produtos (usado pela importacao)
func (db *DB) InsertProducts(products []models.Product) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO produtos
		(codigo_produto, sku_seller, nome_esperado, link, site_disponivel,
		 vendedor_1, preco_1, frete_1, vendedor_2, preco_2, frete_2,
		 vendedor_3, preco_3, frete_3, status_final, data_verificacao)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, p := range products {
		_, err := stmt.Exec(
			p.ProductCode, p.SellerSKU, p.ExpectedName, p.Link, p.Available,
			p.Offers[0].Seller, p.Offers[0].Price, p.Offers[0].Shipping,
			p.Offers[1].Seller, p.Offers[1].Price, p.Offers[1].Shipping,
			p.Offers[2].Seller, p.Offers[2].Price, p.Offers[2].Shipping,
			p.FinalStatus, p.CheckedAt,
		)
		if err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// UpdateProductResults grava os campos de coleta de volta nas linhas existentes.
// A coleta nunca cria nem remove produtos, apenas atualiza por id.
func (db *DB) UpdateProductResults(products []models.Product) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`UPDATE produtos SET
		site_disponivel = ?,
		vendedor_1 = ?, preco_1 = ?, frete_1 = ?,
		vendedor_2 = ?, preco_2 = ?, frete_2 = ?,
		vendedor_3 = ?, preco_3 = ?, frete_3 = ?,
		status_final = ?, data_verificacao = ?
		WHERE id = ?`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, p := range products {
		_, err := stmt.Exec(
			p.Available,
			p.Offers[0].Seller, p.Offers[0].Price, p.Offers[0].Shipping,
			p.Offers[1].Seller, p.Offers[1].Price, p.Offers[1].Shipping,
			p.Offers[2].Seller, p.Offers[2].Price, p.Offers[2].Shipping,
			p.FinalStatus, p.CheckedAt,
			p.ID,
		)
		if err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// AppendHistory adiciona uma linha de historico por produto da coleta e em
// seguida move para historico_backup os registros com data_coleta mais antiga
// que o limite de retencao. Tudo em uma unica transacao.
func (db *DB) AppendHistory(products []models.Product, retentionDays int) error {
	if len(products) == 0 {
		log.Println("[AVISO] Nenhum dado para salvar no historico.")
		return nil
	}

	now := time.Now()
	collectedAt := now.Format(models.DataFormato)

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO historico
		(codigo_produto, nome_esperado, link, site_disponivel,
		 vendedor_1, preco_1, frete_1, vendedor_2, preco_2, frete_2,
		 vendedor_3, preco_3, frete_3, status_final, data_verificacao, data_coleta)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	for _, p := range products {
		_, err := stmt.Exec(
			p.ProductCode, p.ExpectedName, p.Link, p.Available,
			p.Offers[0].Seller, p.Offers[0].Price, p.Offers[0].Shipping,
			p.Offers[1].Seller, p.Offers[1].Price, p.Offers[1].Shipping,
			p.Offers[2].Seller, p.Offers[2].Price, p.Offers[2].Shipping,
			p.FinalStatus, p.CheckedAt, collectedAt,
		)
		if err != nil {
			stmt.Close()
			tx.Rollback()
			return err
		}
	}
	stmt.Close()
	log.Printf("[OK] Historico atualizado com %d linhas", len(products))

	if err := sweepHistory(tx, now, retentionDays); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// sweepHistory move registros antigos do historico para historico_backup.
// Datas que nao parseiam ficam onde estao.
func sweepHistory(tx *sql.Tx, now time.Time, retentionDays int) error {
	cutoff := now.AddDate(0, 0, -retentionDays)

	rows, err := tx.Query("SELECT id, data_coleta FROM historico")
	if err != nil {
		return err
	}

	var expired []int64
	for rows.Next() {
		var id int64
		var collectedAt sql.NullString
		if err := rows.Scan(&id, &collectedAt); err != nil {
			rows.Close()
			return err
		}
		if !collectedAt.Valid || collectedAt.String == "" {
			continue
		}
		parsed, err := time.ParseInLocation(models.DataFormato, collectedAt.String, time.Local)
		if err != nil {
			continue
		}
		if parsed.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	if len(expired) == 0 {
		return nil
	}

	archivedAt := now.Format(models.DataFormato)
	for _, id := range expired {
		_, err := tx.Exec(`INSERT INTO historico_backup
			(codigo_produto, nome_esperado, link, site_disponivel,
			 vendedor_1, preco_1, frete_1, vendedor_2, preco_2, frete_2,
			 vendedor_3, preco_3, frete_3, status_final, data_verificacao, data_coleta, data_backup)
			SELECT codigo_produto, nome_esperado, link, site_disponivel,
			 vendedor_1, preco_1, frete_1, vendedor_2, preco_2, frete_2,
			 vendedor_3, preco_3, frete_3, status_final, data_verificacao, data_coleta, ?
			FROM historico WHERE id = ?`, archivedAt, id)
		if err != nil {
			return err
		}
		if _, err := tx.Exec("DELETE FROM historico WHERE id = ?", id); err != nil {
			return err
		}
	}
	log.Printf("[BACKUP] %d registros movidos para backup (> %d dias)", len(expired), retentionDays)
	return nil
}

// ReadHistory retorna todas as linhas da tabela historico
func (db *DB) ReadHistory() ([]models.HistoryRecord, error) {
	rows, err := db.conn.Query(`SELECT id, codigo_produto, nome_esperado, link,
		site_disponivel, vendedor_1, preco_1, frete_1, vendedor_2, preco_2, frete_2,
		vendedor_3, preco_3, frete_3, status_final, data_verificacao, data_coleta FROM historico`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.HistoryRecord
	for rows.Next() {
		var h models.HistoryRecord
		cols := []any{
			&h.ID,
			nullStr(&h.ProductCode), nullStr(&h.ExpectedName), nullStr(&h.Link),
			nullStr(&h.Available),
			nullStr(&h.Offers[0].Seller), nullStr(&h.Offers[0].Price), nullStr(&h.Offers[0].Shipping),
			nullStr(&h.Offers[1].Seller), nullStr(&h.Offers[1].Price), nullStr(&h.Offers[1].Shipping),
			nullStr(&h.Offers[2].Seller), nullStr(&h.Offers[2].Price), nullStr(&h.Offers[2].Shipping),
			nullStr(&h.FinalStatus), nullStr(&h.CheckedAt), nullStr(&h.CollectedAt),
		}
		if err := rows.Scan(cols...); err != nil {
			return nil, err
		}
		records = append(records, h)
	}
	return records, rows.Err()
}

// CountHistory retorna o total de linhas do historico
func (db *DB) CountHistory() (int, error) {
	var n int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM historico").Scan(&n)
	return n, err
}

// CountBackup retorna o total de linhas do historico_backup
func (db *DB) CountBackup() (int, error) {
	var n int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM historico_backup").Scan(&n)
	return n, err
}

// nullStr adapta um *string para Scan tolerando NULL
func nullStr(s *string) sql.Scanner {
	return &nullStringScanner{dst: s}
}

type nullStringScanner struct {
	dst *string
}

func (n *nullStringScanner) Scan(v any) error {
	var ns sql.NullString
	if err := ns.Scan(v); err != nil {
		return err
	}
	if ns.Valid {
		*n.dst = ns.String
	} else {
		*n.dst = ""
	}
	return nil
}
