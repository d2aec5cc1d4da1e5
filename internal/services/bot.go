package services

import (
	"fmt"
	"time"

	"maffix/internal/models"

	tele "gopkg.in/telebot.v3"
)

const textWinAnnouncement = `💎 <b>%s</b> just pulled <b>%s</b> (%s) from the %s pool!`

// Bot announces high-rarity wins to the community channel. Failures are
// logged and dropped; announcements never affect a committed draw.
type Bot struct {
	token string
}

func NewBot(token string) (*Bot, error) {
	return &Bot{token}, nil
}

func (bot *Bot) AnnounceWin(chatID int64, win *models.RecentWin) error {
	if bot.token == "" || chatID == 0 {
		return nil
	}

	pref := tele.Settings{
		Token:  bot.token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return err
	}

	name := win.Username
	if name == "" {
		name = fmt.Sprintf("user %d", win.UserID)
	}

	_, err = b.Send(&tele.Chat{ID: chatID}, fmt.Sprintf(textWinAnnouncement, name, win.PrizeName, win.Rarity, win.PoolSlug), &tele.SendOptions{
		ParseMode: tele.ModeHTML,
	})
	return err
}
