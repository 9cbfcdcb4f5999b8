package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"nano2zit/internal/convert"
	"nano2zit/internal/hints"
	"nano2zit/internal/prompt"
	"nano2zit/internal/telegram"
	"nano2zit/internal/textgroup"
)

const (
	maxDocumentBytes = 512 << 10
	typingInterval   = 4 * time.Second
)

// Messenger is the part of *telegram.Client the handler uses.
type Messenger interface {
	SendTyping(chatID int64)
	SendText(chatID int64, text string) error
	DownloadFile(ctx context.Context, fileID string, maxBytes int64) ([]byte, error)
}

// Converter is satisfied by *convert.Service.
type Converter interface {
	Convert(ctx context.Context, req convert.Request) (convert.Result, error)
	Inspect(inputJSON string) (hints.Bundle, error)
	Catalog() *prompt.Catalog
}

type Options struct {
	Telegram  Messenger
	Converter Converter
	Logger    *slog.Logger
}

type Handler struct {
	tg         Messenger
	conv       Converter
	logger     *slog.Logger
	aggregator *textgroup.Aggregator
	typingIvl  time.Duration
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		tg:        opts.Telegram,
		conv:      opts.Converter,
		logger:    logger,
		typingIvl: typingInterval,
	}
}

// SetTextAggregator routes plain text through the burst aggregator instead
// of converting each message on its own.
func (h *Handler) SetTextAggregator(ag *textgroup.Aggregator) {
	h.aggregator = ag
}

func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) error {
	msg := update.Message
	if msg == nil {
		return nil
	}

	chatID := msg.Chat.ID
	var userID int64
	var username string
	if msg.From != nil {
		userID, username = msg.From.ID, msg.From.UserName
	}

	switch {
	case msg.IsCommand():
		return h.handleCommand(ctx, chatID, msg)
	case msg.Document != nil:
		return h.handleDocument(ctx, chatID, msg.Document)
	case msg.Text != "":
		if h.aggregator != nil {
			h.aggregator.Add(textgroup.Item{
				ChatID:   chatID,
				UserID:   userID,
				Username: username,
				Text:     msg.Text,
			})
			return nil
		}
		return h.handleText(ctx, chatID, msg.Text)
	}
	return nil
}

// HandleBatch converts one flushed burst of text messages.
func (h *Handler) HandleBatch(ctx context.Context, batch textgroup.Batch) {
	if err := h.handleText(ctx, batch.ChatID, batch.Text()); err != nil && !errors.Is(err, context.Canceled) {
		h.logger.Error("text batch failed", "chat_id", batch.ChatID, "parts", len(batch.Parts), "err", err)
	}
}

func (h *Handler) handleCommand(ctx context.Context, chatID int64, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return h.tg.SendText(chatID,
			"🍌 nano2zit\n\n"+
				"Send me a Nano Banana Pro JSON prompt and I will rewrite it as two Z-Image Turbo prompts: SFW and NSFW.\n\n"+
				h.commandList(),
		)
	case "help":
		return h.tg.SendText(chatID,
			"Paste the JSON as text (long pastes are joined automatically) or send a .json file.\n\n"+
				h.commandList(),
		)
	case "profiles":
		return h.tg.SendText(chatID, h.profileList())
	case "convert":
		profile, input := splitProfileArg(msg.CommandArguments())
		if input == "" {
			return h.tg.SendText(chatID, "❌ Missing JSON.\nExample: /convert v3-rich {\"subject\": \"woman\"}")
		}
		return h.convert(ctx, chatID, profile, input)
	case "hints":
		input := extractJSON(msg.CommandArguments())
		bundle, err := h.conv.Inspect(input)
		if err != nil {
			return h.replyError(chatID, err)
		}
		return h.tg.SendText(chatID, bundle.Directives)
	default:
		return h.tg.SendText(chatID, "❌ Unknown command. See /help.")
	}
}

func (h *Handler) handleText(ctx context.Context, chatID int64, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if !looksLikeJSON(text) {
		return h.tg.SendText(chatID, "Send a JSON prompt (starting with { ) or a .json file. See /help.")
	}
	return h.convert(ctx, chatID, "", extractJSON(text))
}

func (h *Handler) handleDocument(ctx context.Context, chatID int64, doc *tgbotapi.Document) error {
	if !isJSONDocument(doc.FileName, doc.MimeType) {
		return h.tg.SendText(chatID, "❌ Only .json files are supported.")
	}
	if doc.FileSize > maxDocumentBytes {
		return h.tg.SendText(chatID, fmt.Sprintf("❌ File is too large (max %d KB).", maxDocumentBytes>>10))
	}

	data, err := h.tg.DownloadFile(ctx, doc.FileID, maxDocumentBytes)
	if err != nil {
		h.logger.Error("document download failed", "chat_id", chatID, "err", err)
		return h.tg.SendText(chatID, "❌ Could not download the file.")
	}
	return h.convert(ctx, chatID, "", string(data))
}

func (h *Handler) convert(ctx context.Context, chatID int64, profile, input string) error {
	var res convert.Result
	err := h.withTyping(ctx, chatID, func(ctx context.Context) error {
		var err error
		res, err = h.conv.Convert(ctx, convert.Request{InputJSON: input, Profile: profile})
		return err
	})
	if err != nil {
		return h.replyError(chatID, err)
	}

	h.logger.Info("converted",
		"chat_id", chatID,
		"profile", res.Profile,
		"provider", res.Provider,
		"model", res.Model,
	)

	if err := h.tg.SendText(chatID, "🟢 SFW ("+res.Profile+")\n\n"+res.SFW); err != nil {
		return err
	}
	return h.tg.SendText(chatID, "🔴 NSFW ("+res.Profile+")\n\n"+res.NSFW)
}

// withTyping keeps the typing indicator alive while fn runs.
func (h *Handler) withTyping(ctx context.Context, chatID int64, fn func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return fn(gctx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(h.typingIvl)
		defer ticker.Stop()
		for {
			h.tg.SendTyping(chatID)
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	})
	return g.Wait()
}

func (h *Handler) replyError(chatID int64, err error) error {
	var (
		bad         *convert.BadRequestError
		unknown     *convert.UnknownProfileError
		unparseable *convert.UnparseableError
	)
	switch {
	case errors.As(err, &bad):
		return h.tg.SendText(chatID, "❌ "+bad.Message)
	case errors.As(err, &unknown):
		return h.tg.SendText(chatID, fmt.Sprintf("❌ Unknown profile %q.\n\n%s", unknown.Profile, h.profileList()))
	case errors.As(err, &unparseable):
		h.logger.Warn("unparseable output", "chat_id", chatID, "provider", unparseable.Provider, "model", unparseable.Model)
		return h.tg.SendText(chatID, "❌ The model answer had no SFW/NSFW sections. Please try again.")
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return h.tg.SendText(chatID, "❌ The model took too long. Please try again.")
	default:
		h.logger.Error("convert failed", "chat_id", chatID, "err", err)
		return h.tg.SendText(chatID, "❌ Conversion failed. Please try again later.")
	}
}

func (h *Handler) commandList() string {
	return "Commands:\n" +
		"/convert [profile] <json> - convert with a prompt profile\n" +
		"/hints <json> - show the constraint hints found in the JSON\n" +
		"/profiles - list prompt profiles\n" +
		"/help - usage"
}

func (h *Handler) profileList() string {
	catalog := h.conv.Catalog()

	var b strings.Builder
	b.WriteString("Prompt profiles:\n")
	for _, p := range catalog.List() {
		marker := ""
		if p.ID == catalog.DefaultID() {
			marker = " (default)"
		}
		fmt.Fprintf(&b, "\n• %s%s - %s\n  %s\n", p.ID, marker, p.Name, p.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}
