package bot

import (
	"mime"
	"path/filepath"
	"strconv"
	"strings"

	"teraBridgeBot/internal/transfer"
	"teraBridgeBot/internal/types"

	"github.com/celestix/gotgproto/ext"
	"github.com/gotd/td/telegram/uploader"
	"github.com/gotd/td/tg"
)

// deliverFile uploads a spooled artifact and sends it to the requester's
// chat. When a dump channel is configured, a second copy goes there;
// failures on that copy are logged and never fail the delivery.
func (b *TelegramBot) deliverFile(ctx *ext.Context, chatID int64, artifact *transfer.LocalArtifact, desc *types.FileDescriptor) error {
	upl := uploader.NewUploader(b.tgClient.API())
	file, err := upl.FromPath(ctx, artifact.Path)
	if err != nil {
		return &DeliveryError{Cause: err}
	}

	media := buildDocumentMedia(file, artifact.Name, desc)

	req := &tg.MessagesSendMediaRequest{
		Media:   media,
		Message: artifact.Name,
		ReplyMarkup: &tg.ReplyInlineMarkup{
			Rows: []tg.KeyboardButtonRow{
				{
					Buttons: []tg.KeyboardButtonClass{
						&tg.KeyboardButtonCallback{Text: "Get Direct Links", Data: []byte(callbackGetLinks)},
					},
				},
			},
		},
	}
	if _, err := ctx.SendMedia(chatID, req); err != nil {
		return &DeliveryError{Cause: err}
	}
	b.logger.Infof("Delivered %s (%d bytes) to chat %d", artifact.Name, artifact.Size, chatID)

	if err := b.archiveCopy(ctx, media); err != nil {
		b.logger.Warningf("%v", err)
	}
	return nil
}

// archiveCopy sends the already-uploaded media to the dump channel.
func (b *TelegramBot) archiveCopy(ctx *ext.Context, media tg.InputMediaClass) error {
	if b.config.DumpChannelID == "" {
		return nil
	}
	channelID, err := strconv.ParseInt(b.config.DumpChannelID, 10, 64)
	if err != nil {
		return &DeliveryError{Archive: true, Cause: err}
	}
	if _, err := ctx.SendMedia(channelID, &tg.MessagesSendMediaRequest{Media: media}); err != nil {
		return &DeliveryError{Archive: true, Cause: err}
	}
	return nil
}

func buildDocumentMedia(file tg.InputFileClass, name string, desc *types.FileDescriptor) *tg.InputMediaUploadedDocument {
	attributes := []tg.DocumentAttributeClass{
		&tg.DocumentAttributeFilename{FileName: name},
	}
	if desc.IsVideo() {
		attributes = append(attributes, &tg.DocumentAttributeVideo{
			SupportsStreaming: true,
		})
	}
	return &tg.InputMediaUploadedDocument{
		File:       file,
		MimeType:   mimeTypeFor(name),
		Attributes: attributes,
	}
}

func mimeTypeFor(name string) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); t != "" {
		return t
	}
	return "application/octet-stream"
}
