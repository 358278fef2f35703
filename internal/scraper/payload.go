package scraper

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Formas dos payloads da PDP API e da API de preco por vendedor.
// Campos ausentes viram zero values e sao tratados pelas regras de
// default abaixo, nunca por acesso dinamico espalhado pelo coletor.

type pdpResponse struct {
	CurrentProduct *currentProduct `json:"currentProduct"`
}

type currentProduct struct {
	Prices []offerPayload `json:"prices"`
}

type offerPayload struct {
	// Ausente conta como disponivel, igual ao comportamento da API
	Available *bool `json:"available"`

	// Seller pode vir como objeto {name, id} ou como string simples
	Seller     json.RawMessage `json:"seller"`
	SellerName string          `json:"sellerName"`

	FinalPrice  *float64 `json:"finalPriceWithoutPaymentBenefitDiscount"`
	SaleInCents *float64 `json:"saleInCents"`
	ListInCents *float64 `json:"listInCents"`

	FreeShipping bool     `json:"freeShipping"`
	Shipping     *float64 `json:"shipping"`
	ShippingCost *float64 `json:"shippingCost"`
}

type sellerObject struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

type sellerPriceResponse struct {
	SalePrice  *float64 `json:"salePrice"`
	FinalPrice *float64 `json:"finalPriceWithoutPaymentBenefitDiscount"`
}

// isAvailable aplica o default: oferta sem campo available e considerada disponivel
func (o *offerPayload) isAvailable() bool {
	return o.Available == nil || *o.Available
}

// sellerInfo resolve nome e id do vendedor, aceitando objeto ou string.
// Nome e id sao independentes: um objeto so com id ainda devolve o id,
// para a consulta de preco por vendedor continuar possivel. Sem objeto,
// o nome vem de sellerName e por ultimo da string crua.
func (o *offerPayload) sellerInfo() (name, id string) {
	if raw := bytes.TrimSpace(o.Seller); len(raw) > 0 && raw[0] == '{' {
		var obj sellerObject
		if err := json.Unmarshal(raw, &obj); err == nil {
			name, id = obj.Name, obj.ID
			if name == "" {
				name = o.SellerName
			}
			return name, id
		}
	}
	if o.SellerName != "" {
		return o.SellerName, ""
	}
	var plain string
	if len(o.Seller) > 0 {
		if err := json.Unmarshal(o.Seller, &plain); err == nil {
			return plain, ""
		}
	}
	return "", ""
}

// priceInCents retorna o preco da oferta na API principal, preferindo o
// preco final com descontos e caindo para sale/list em centavos
func (o *offerPayload) priceInCents() *float64 {
	if o.FinalPrice != nil {
		return o.FinalPrice
	}
	if o.SaleInCents != nil {
		return o.SaleInCents
	}
	return o.ListInCents
}

// price resolve o preco vindo da API por vendedor
func (s *sellerPriceResponse) price() *float64 {
	if s.SalePrice != nil {
		return s.SalePrice
	}
	return s.FinalPrice
}

// formatPrice converte preco em centavos para reais com duas casas.
// Valor ausente vira o sentinela "-".
func formatPrice(cents *float64) string {
	if cents == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *cents/100)
}
