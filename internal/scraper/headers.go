package scraper

import (
	"fmt"
	"math/rand"
	"net/http"
	"strings"
)

// Lista extensa de user agents reais de diferentes navegadores/OS
var userAgents = []string{
	// Chrome Windows
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 11.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	// Chrome Mac
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_1) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_6) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	// Chrome Linux
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	// Firefox Windows
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:120.0) Gecko/20100101 Firefox/120.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:119.0) Gecko/20100101 Firefox/119.0",
	// Firefox Mac
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14.1; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:120.0) Gecko/20100101 Firefox/120.0",
	// Safari Mac
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_1) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_6) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
	// Edge Windows
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36 Edg/119.0.0.0",
	// Opera
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36 OPR/105.0.0.0",
}

var acceptLanguages = []string{
	"pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7",
	"pt-BR,pt;q=0.9,en;q=0.8",
	"pt-BR,pt;q=0.8,en-US;q=0.6,en;q=0.4",
	"pt,pt-BR;q=0.9,en-US;q=0.8,en;q=0.7",
	"pt-BR,pt;q=0.9",
}

var secChUAList = []string{
	`"Not_A Brand";v="8", "Chromium";v="120", "Google Chrome";v="120"`,
	`"Not_A Brand";v="8", "Chromium";v="119", "Google Chrome";v="119"`,
	`"Firefox";v="121"`,
	`"Microsoft Edge";v="120", "Chromium";v="120"`,
}

var secChUAPlatforms = []string{`"Windows"`, `"macOS"`, `"Linux"`}

var cacheControls = []string{"no-cache", "max-age=0"}

// RandomHeaders gera um conjunto de headers novo para cada requisicao,
// simulando comportamento de navegador real. Reaproveitar o mesmo conjunto
// em escala e em si um sinal de bot, entao deve ser chamado a cada request.
func RandomHeaders(baseURL, sku, sessionID string) http.Header {
	ua := userAgents[rand.Intn(len(userAgents))]
	isChrome := strings.Contains(ua, "Chrome") && !strings.Contains(ua, "Edg")

	h := http.Header{}
	h.Set("User-Agent", ua)
	h.Set("Accept", "application/json, text/plain, */*")
	h.Set("Accept-Language", acceptLanguages[rand.Intn(len(acceptLanguages))])
	h.Set("Accept-Encoding", "gzip, deflate, br")
	h.Set("Connection", "keep-alive")
	h.Set("Cache-Control", cacheControls[rand.Intn(len(cacheControls))])

	// Client hints so existem em navegadores da familia Chromium
	if isChrome {
		h.Set("sec-ch-ua", secChUAList[rand.Intn(2)])
		h.Set("sec-ch-ua-mobile", "?0")
		h.Set("sec-ch-ua-platform", secChUAPlatforms[rand.Intn(len(secChUAPlatforms))])
		h.Set("Sec-Fetch-Dest", "empty")
		h.Set("Sec-Fetch-Mode", "cors")
		h.Set("Sec-Fetch-Site", "same-origin")
	}

	referers := []string{
		baseURL + "/",
		baseURL + "/busca?q=tenis",
		baseURL + "/calcados/tenis",
	}
	if sku != "" {
		referers = append(referers, fmt.Sprintf("%s/produto/%s", baseURL, sku))
	}
	h.Set("Referer", referers[rand.Intn(len(referers))])

	if rand.Float64() > 0.5 {
		h.Set("DNT", "1")
	}
	if rand.Float64() > 0.7 {
		h.Set("Pragma", "no-cache")
	}

	return h
}
