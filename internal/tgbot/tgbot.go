package tgbot

import (
	"log/slog"

	"github.com/KotFed0t/asset_tracker/config"
	"github.com/KotFed0t/asset_tracker/internal/model/tgCallback"
	"github.com/KotFed0t/asset_tracker/internal/transport/telegram"
	customMW "github.com/KotFed0t/asset_tracker/internal/transport/telegram/middleware"
	tele "gopkg.in/telebot.v4"
	"gopkg.in/telebot.v4/middleware"
)

type TGBot struct {
	bot            *tele.Bot
	ctrl           *telegram.Controller
	allowedChatIDs []int64
}

func New(cfg *config.Config, ctrl *telegram.Controller) *TGBot {
	settings := tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: &tele.LongPoller{Timeout: cfg.Telegram.UpdTimeout},
	}

	b, err := tele.NewBot(settings)
	if err != nil {
		slog.Error("error while tele.NewBot", slog.String("err", err.Error()))
		panic(err)
	}

	if len(cfg.Telegram.AllowedChatIDs) == 0 {
		slog.Warn("TELEGRAM_ALLOWED_CHAT_IDS is empty, the bot will ignore every chat")
	}

	return &TGBot{bot: b, ctrl: ctrl, allowedChatIDs: cfg.Telegram.AllowedChatIDs}
}

func (b *TGBot) Start() {
	b.bot.Use(middleware.Recover(), customMW.Logger(), customMW.Whitelist(b.allowedChatIDs))

	b.setupRoutes()

	go b.bot.Start()
	slog.Info("tgbot started!")
}

func (b *TGBot) Stop() {
	slog.Info("start stopping tgbot")
	b.bot.Stop()
	slog.Info("tgbot stopped")
}

func (b *TGBot) setupRoutes() {
	b.bot.Handle("/start", b.ctrl.Start)
	b.bot.Handle("/help", b.ctrl.Start)
	b.bot.Handle("/portfolio", b.ctrl.Portfolio)
	b.bot.Handle("/refresh", b.ctrl.Refresh)
	b.bot.Handle("/add", b.ctrl.AddAsset)
	b.bot.Handle("/edit", b.ctrl.EditQuantity)
	b.bot.Handle("/remove", b.ctrl.InitRemove)
	b.bot.Handle("/export", b.ctrl.Export)
	b.bot.Handle("/report", b.ctrl.Report)

	b.bot.Handle("\f"+tgCallback.ShowClass, b.ctrl.ShowClass)
	b.bot.Handle("\f"+tgCallback.Refresh, b.ctrl.RefreshCallback)
	b.bot.Handle("\f"+tgCallback.ConfirmRemove, b.ctrl.ConfirmRemove)
	b.bot.Handle("\f"+tgCallback.CancelRemove, b.ctrl.CancelRemove)
}
