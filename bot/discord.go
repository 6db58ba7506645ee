// Package bot is an optional Discord front end. It watches channels for
// video links, converts them and replies with a link to the web server's
// download endpoint.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/robertkozin/wizardconvert/archive"
	"github.com/robertkozin/wizardconvert/convert"
	"github.com/robertkozin/wizardconvert/media"
	"github.com/robertkozin/wizardconvert/tr"
	"github.com/robertkozin/wizardconvert/workdir"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var (
	tracer     = otel.Tracer("bot")
	urlPattern = regexp.MustCompile(`https?://\S+`)
)

const (
	convertTimeout   = 15 * time.Minute
	msgInternalError = "Something went wrong on our side, please try again later."
)

type Converter interface {
	Convert(ctx context.Context, req convert.Request) (convert.Result, error)
}

type Archiver interface {
	Put(ctx context.Context, entry archive.Entry, path string) error
}

type Discord struct {
	id      string
	session *discordgo.Session

	Token     string
	PublicURL string
	Converter Converter
	Workdirs  workdir.Store
	Archive   Archiver // optional
	Logger    *slog.Logger
}

func (b *Discord) Start() error {
	dg, err := discordgo.New("Bot " + b.Token)
	if err != nil {
		return fmt.Errorf("discordgo.New: %w", err)
	}
	b.session = dg

	dg.Identify.Intents = discordgo.IntentGuildMessages | discordgo.IntentDirectMessages | discordgo.IntentMessageContent

	dg.SyncEvents = false
	dg.StateEnabled = false

	dg.AddHandler(b.readyHandler)
	dg.AddHandler(b.messageCreateHandler)

	if err := dg.Open(); err != nil {
		return fmt.Errorf("dg.Open: %w", err)
	}

	return nil
}

func (b *Discord) Close() error {
	if b.session == nil {
		return nil
	}
	return b.session.Close()
}

func (b *Discord) readyHandler(s *discordgo.Session, m *discordgo.Ready) {
	b.id = m.User.ID
	b.Logger.Info("discord bot ready", "user", m.User.Username)
}

func (b *Discord) messageCreateHandler(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == b.id || m.Author.Bot {
		return
	}

	url := findVideoURL(m.Content)
	if url == "" {
		return
	}

	go b.replyToMessage(context.Background(), s, m, url, requestedFormat(m.Content))
}

func (b *Discord) replyToMessage(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate, url string, format media.Format) {
	ctx, span := tracer.Start(ctx, "discord_reply")
	defer span.End()
	span.SetAttributes(attribute.String("url", url), attribute.String("format", format.String()))

	ctx, cancel := context.WithTimeout(ctx, convertTimeout)
	defer cancel()

	_ = s.ChannelTyping(m.ChannelID)

	reply := buildReply(b.respond(ctx, url, format), m.Reference())
	if _, err := s.ChannelMessageSendComplex(m.ChannelID, reply); err != nil {
		b.Logger.Error("channel send message", "channel_id", m.ChannelID, "url", url, "err", err)
	}
}

// respond converts url and returns the reply text, a download link on
// success and a user facing message otherwise.
func (b *Discord) respond(ctx context.Context, url string, format media.Format) string {
	var err error
	ctx, span := tracer.Start(ctx, "discord_respond")
	defer tr.End(span, &err)

	id := uuid.NewString()
	dir, err := b.Workdirs.Create(id)
	if err != nil {
		b.Logger.ErrorContext(ctx, "creating working directory", "err", err)
		return msgInternalError
	}

	res, err := b.Converter.Convert(ctx, convert.Request{URL: url, Format: format, Dir: dir})
	if err != nil {
		return err.Error()
	}

	if b.Archive != nil {
		entry := archive.Entry{ID: id, SourceURL: url, Title: res.Title, Format: format}
		if aerr := b.Archive.Put(ctx, entry, res.FilePath); aerr != nil {
			b.Logger.WarnContext(ctx, "archiving conversion", "id", id, "err", aerr)
		}
	}
	return successContent(res.Title, downloadURL(b.PublicURL, id))
}

// findVideoURL returns the first link in content that is an accepted video
// URL.
func findVideoURL(content string) string {
	for _, candidate := range urlPattern.FindAllString(content, -1) {
		candidate = strings.TrimRight(candidate, ">)]")
		if media.ValidateURL(candidate) {
			return candidate
		}
	}
	return ""
}

// requestedFormat is mp3 when the message asks for audio, mp4 otherwise.
func requestedFormat(content string) media.Format {
	for _, word := range strings.Fields(strings.ToLower(content)) {
		word = strings.Trim(word, ".,!?()[]")
		if word == "mp3" || word == "audio" {
			return media.MP3
		}
	}
	return media.MP4
}

func downloadURL(publicURL, id string) string {
	return strings.TrimSuffix(publicURL, "/") + "/download/" + id
}

func successContent(title, link string) string {
	if title == "" {
		return link
	}
	return "**" + title + "** " + link
}

func buildReply(content string, ref *discordgo.MessageReference) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content:   content,
		Reference: ref,
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse:       []discordgo.AllowedMentionType{},
			RepliedUser: true,
		},
	}
}
