// Package telegram is the outbound surface: channel publications and the
// admin review dialog.
package telegram

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"espanews/internal/logger"
	"espanews/internal/model"
)

// API is the subset of the bot API the client uses. Tests plug in a fake.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Client publishes posts to the channel and talks to the admin chat.
type Client struct {
	api         API
	channelID   string
	adminChatID int64
}

func New(token, channelID string, adminChatID int64) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	logger.Info("telegram bot authorized", "account", api.Self.UserName)

	return &Client{api: api, channelID: channelID, adminChatID: adminChatID}, nil
}

// Updates starts long polling and returns the update channel.
func (c *Client) Updates() tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	return c.api.GetUpdatesChan(u)
}

func (c *Client) Stop() {
	c.api.StopReceivingUpdates()
}

// PublishPost sends a post to the channel: as a photo with caption when the
// item carries an image and the text fits the caption limit, as a plain
// HTML message otherwise.
func (c *Client) PublishPost(post model.Post) error {
	text := FormatPost(post)

	if post.Item.Image != "" && utf8.RuneCountInString(text) <= MaxCaptionLen {
		photo := tgbotapi.NewPhotoToChannel(c.channelUsername(), tgbotapi.FileURL(post.Item.Image))
		photo.Caption = text
		photo.ParseMode = tgbotapi.ModeHTML
		if chatID, ok := c.numericChannel(); ok {
			photo.ChannelUsername = ""
			photo.ChatID = chatID
		}
		_, err := c.api.Send(photo)
		if err == nil {
			return nil
		}
		// A dead image URL should not block the news itself.
		logger.Warn("photo send failed, falling back to text", "link", post.Item.Link, "error", err)
	}

	msg := tgbotapi.NewMessageToChannel(c.channelUsername(), text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if chatID, ok := c.numericChannel(); ok {
		msg.ChannelUsername = ""
		msg.ChatID = chatID
	}
	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("send to channel: %w", err)
	}
	return nil
}

// SendReview sends a post to the admin chat with the scheduling keyboard.
// token identifies the post in callback data.
func (c *Client) SendReview(post model.Post, token string) error {
	text := "Новость готова к публикации:\n\n" + FormatPost(post)
	msg := tgbotapi.NewMessage(c.adminChatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = ReviewKeyboard(token)

	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("send review: %w", err)
	}
	return nil
}

// SendMessage sends a plain text message to the given chat.
func (c *Client) SendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := c.api.Send(msg); err != nil {
		logger.Error("send message failed", "chat_id", chatID, "error", err)
	}
}

// SendAdmin sends a plain text message to the admin chat.
func (c *Client) SendAdmin(text string) {
	c.SendMessage(c.adminChatID, text)
}

// AckCallback answers a callback query so the button stops spinning.
func (c *Client) AckCallback(id string) {
	if _, err := c.api.Send(tgbotapi.NewCallback(id, "")); err != nil {
		logger.Error("callback ack failed", "error", err)
	}
}

// RemoveKeyboard strips the inline keyboard from a review message after the
// admin has decided.
func (c *Client) RemoveKeyboard(chatID int64, messageID int) {
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	if _, err := c.api.Send(edit); err != nil {
		logger.Debug("keyboard removal failed", "error", err)
	}
}

func (c *Client) channelUsername() string {
	if len(c.channelID) > 0 && c.channelID[0] == '@' {
		return c.channelID
	}
	return "@" + c.channelID
}

// numericChannel reports whether the configured channel is a raw chat id
// rather than a public @username.
func (c *Client) numericChannel() (int64, bool) {
	id, err := strconv.ParseInt(c.channelID, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
