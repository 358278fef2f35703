package notify

import (
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier envia o resumo da coleta por Telegram. E opcional: quando nao ha
// token configurado a aplicacao simplesmente nao cria um.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// New cria o notificador e valida o token junto a API do Telegram
func New(token string, chatID int64) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	log.Printf("[NOTIFY] Notificacao habilitada (bot @%s)", bot.Self.UserName)
	return &Notifier{bot: bot, chatID: chatID}, nil
}

// SendSummary envia o texto do resumo final para o chat configurado
func (n *Notifier) SendSummary(text string) error {
	msg := tgbotapi.NewMessage(n.chatID, text)
	_, err := n.bot.Send(msg)
	return err
}
