package scraper

import "regexp"

// Mesmo padrao dos SKUs da Netshoes: segmento de path em maiusculas,
// digitos e hifens com pelo menos 5 caracteres (ex: /D23-2094-028-01)
var skuRegex = regexp.MustCompile(`/([A-Z0-9-]{5,})`)

// ExtractSKU extrai o SKU de um link de produto. Retorna vazio quando o
// link nao contem um SKU reconhecivel; nunca retorna erro.
func ExtractSKU(link string) string {
	if link == "" {
		return ""
	}
	m := skuRegex.FindStringSubmatch(link)
	if m == nil {
		return ""
	}
	return m[1]
}
