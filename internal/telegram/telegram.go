package telegram

import (
	"html"
	"net/http"
	"strings"
	"unicode/utf8"

	"WooWithWasp/pkg/logging"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/pkg/errors"
)

// maxMessageLength ограничение Telegram на длину текста
const maxMessageLength = 4096

type Notifier interface {
	Send(text string) error
}

type bot struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// NewNotifier бот для оповещений. Пустой токен дает Nop.
func NewNotifier(token string, chatID int64, debug bool) (Notifier, error) {
	return NewNotifierWithClient(token, chatID, debug, &http.Client{})
}

func NewNotifierWithClient(token string, chatID int64, debug bool, client *http.Client) (Notifier, error) {
	logger := logging.GetLogger()
	if token == "" || chatID == 0 {
		logger.Info("telegram не настроен, оповещения отключены")
		return Nop{}, nil
	}

	api, err := tgbotapi.NewBotAPIWithClient(token, client)
	if err != nil {
		return nil, errors.Wrap(err, "failed tgbotapi.NewBotAPI")
	}
	api.Debug = debug
	logger.Infof("telegram bot %s", api.Self.UserName)
	return &bot{api: api, chatID: chatID}, nil
}

func (b *bot) Send(text string) error {
	msg := tgbotapi.NewMessage(b.chatID, truncate(text, maxMessageLength))
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		return errors.Wrap(err, "failed send message to telegram")
	}
	return nil
}

// Escape текст ошибок и сводок для сообщения в режиме HTML
func Escape(s string) string {
	return html.EscapeString(s)
}

// truncate обрезает по границе руны и не рвет HTML-сущность
func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	text = text[:cut]
	if i := strings.LastIndexByte(text, '&'); i >= 0 && !strings.Contains(text[i:], ";") {
		text = text[:i]
	}
	return text
}

type Nop struct{}

func (Nop) Send(string) error {
	return nil
}

// SendMessageWithLogError ошибка отправки только пишется в лог
func SendMessageWithLogError(n Notifier, text string) {
	logger := logging.GetLogger()
	logger.Info(text)
	if n == nil {
		return
	}
	if err := n.Send(text); err != nil {
		logger.Errorf("failed send message to telegram: %v", err)
	}
}
