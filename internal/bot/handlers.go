package bot

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"teraBridgeBot/internal/classifier"
	"teraBridgeBot/internal/policy"
	"teraBridgeBot/internal/resolver"
	"teraBridgeBot/internal/transfer"
	"teraBridgeBot/internal/types"

	"github.com/celestix/gotgproto/dispatcher"
	"github.com/celestix/gotgproto/ext"
	"github.com/celestix/gotgproto/storage"
	"github.com/dustin/go-humanize"
	"github.com/gotd/td/tg"
)

const callbackGetLinks = "cb_GetLinks"

func (b *TelegramBot) handleStartCommand(ctx *ext.Context, u *ext.Update) error {
	chatID := u.EffectiveChat().GetID()
	user := u.EffectiveUser()

	if user.ID == ctx.Self.ID {
		return nil
	}

	b.logger.Infof("Processing /start command from user: %s (ID: %d) in chat: %d", user.FirstName, user.ID, chatID)

	_, err := b.userRepository.GetUserInfo(user.ID)
	isNewUser := errors.Is(err, sql.ErrNoRows)
	if err != nil && !isNewUser {
		return fmt.Errorf("failed to retrieve user info: %w", err)
	}

	isFirstUser, err := b.userRepository.IsFirstUser()
	if err != nil {
		return fmt.Errorf("failed to check first user status: %w", err)
	}

	// The first user to ever talk to the bot becomes its admin.
	if err := b.userRepository.StoreUserInfo(user.ID, chatID, user.FirstName, user.LastName, user.Username, isFirstUser); err != nil {
		return fmt.Errorf("failed to store user info: %w", err)
	}

	if isNewUser && !isFirstUser {
		b.notifyAdminsAboutNewUser(ctx, user)
	}

	msg := fmt.Sprintf(
		"Hello %s, I am @%s!\n\n"+
			"Send me a TeraBox share link and I will fetch the file for you. "+
			"Small files are sent right here in the chat; for videos you also get a web player link.\n\n"+
			"Use /help to see the supported domains.",
		user.FirstName, ctx.Self.Username,
	)
	return b.sendReply(ctx, u, msg)
}

func (b *TelegramBot) handleHelpCommand(ctx *ext.Context, u *ext.Update) error {
	var sb strings.Builder
	sb.WriteString("Send a share link (or a bare share ID starting with 1) from any of these domains:\n\n")
	for _, d := range classifier.SupportedDomains {
		sb.WriteString("• ")
		sb.WriteString(d)
		sb.WriteString("\n")
	}
	sb.WriteString("\nFiles below ")
	sb.WriteString(humanize.Bytes(uint64(b.config.SizeThresholdVal)))
	sb.WriteString(" are relayed directly; larger files get download links instead.")
	return b.sendReply(ctx, u, sb.String())
}

func (b *TelegramBot) handleStatsCommand(ctx *ext.Context, u *ext.Update) error {
	if !b.requireAdmin(ctx, u) {
		return dispatcher.EndGroups
	}

	users, transfers, bytes, err := b.userRepository.Totals()
	if err != nil {
		b.logger.Errorf("Failed to read stats: %v", err)
		return b.sendReply(ctx, u, "Failed to read stats.")
	}
	total, completed, active := b.sessions.Stats()

	msg := fmt.Sprintf(
		"Users: %d\nCompleted transfers: %d (%s)\n\nSince start: %d transfers, %d completed, %d active",
		users, transfers, humanize.Bytes(uint64(bytes)), total, completed, active,
	)
	return b.sendReply(ctx, u, msg)
}

func (b *TelegramBot) handleBanCommand(ctx *ext.Context, u *ext.Update) error {
	return b.setBanFromCommand(ctx, u, true)
}

func (b *TelegramBot) handleUnbanCommand(ctx *ext.Context, u *ext.Update) error {
	return b.setBanFromCommand(ctx, u, false)
}

func (b *TelegramBot) setBanFromCommand(ctx *ext.Context, u *ext.Update, banned bool) error {
	if !b.requireAdmin(ctx, u) {
		return dispatcher.EndGroups
	}

	verb := "ban"
	if !banned {
		verb = "unban"
	}

	args := strings.Fields(u.EffectiveMessage.Text)
	if len(args) < 2 {
		return b.sendReply(ctx, u, fmt.Sprintf("Usage: /%s <user_id>", verb))
	}
	targetUserID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return b.sendReply(ctx, u, "Invalid user ID.")
	}

	if err := b.userRepository.SetBanned(targetUserID, banned); err != nil {
		b.logger.Errorf("Failed to %s user %d: %v", verb, targetUserID, err)
		return b.sendReply(ctx, u, fmt.Sprintf("Failed to %s the user.", verb))
	}
	return b.sendReply(ctx, u, fmt.Sprintf("User %d has been %sned.", targetUserID, verb))
}

// notifyAdminsAboutNewUser tells every admin that a new user started the
// bot, so they can /ban early if needed. Send failures are logged and
// never affect the new user's own flow.
func (b *TelegramBot) notifyAdminsAboutNewUser(ctx *ext.Context, newUser *tg.User) {
	admins, err := b.userRepository.GetAllAdmins()
	if err != nil {
		b.logger.Warningf("Failed to retrieve admin list: %v", err)
		return
	}

	msg := newUserNotification(newUser)
	for _, admin := range admins {
		if admin.UserID == newUser.ID {
			continue
		}
		if _, err := ctx.SendMessage(admin.ChatID, &tg.MessagesSendMessageRequest{Message: msg}); err != nil {
			b.logger.Warningf("Failed to notify admin %d about new user %d: %v", admin.UserID, newUser.ID, err)
		}
	}
}

func newUserNotification(newUser *tg.User) string {
	name := strings.TrimSpace(newUser.FirstName + " " + newUser.LastName)
	if username, ok := newUser.GetUsername(); ok {
		name = fmt.Sprintf("@%s (%s)", username, name)
	}
	return fmt.Sprintf("New user: %s, ID %d. Use /ban %d to block them.", name, newUser.ID, newUser.ID)
}

func (b *TelegramBot) requireAdmin(ctx *ext.Context, u *ext.Update) bool {
	info, err := b.userRepository.GetUserInfo(u.EffectiveUser().ID)
	if err != nil || !info.IsAdmin {
		b.sendReply(ctx, u, "You are not authorized to perform this action.")
		return false
	}
	return true
}

// handleTextMessage is the main entry point: every non-command text
// message in a private chat is treated as a potential share link.
func (b *TelegramBot) handleTextMessage(ctx *ext.Context, u *ext.Update) error {
	text := strings.TrimSpace(u.EffectiveMessage.Text)
	if text == "" || strings.HasPrefix(text, "/") {
		return nil
	}

	chatID := u.EffectiveChat().GetID()
	if !b.isUserChat(ctx, chatID) {
		return dispatcher.EndGroups
	}

	user := u.EffectiveUser()
	if info, err := b.userRepository.GetUserInfo(user.ID); err == nil && info.IsBanned {
		return b.sendReply(ctx, u, "You are banned from using this bot.")
	} else if errors.Is(err, sql.ErrNoRows) {
		// A link sent before /start still registers the user.
		if err := b.userRepository.StoreUserInfo(user.ID, chatID, user.FirstName, user.LastName, user.Username, false); err != nil {
			b.logger.Warningf("Failed to register user %d: %v", user.ID, err)
		}
	}

	loc, err := classifier.Classify(text)
	if err != nil {
		// Chatty messages without a URL are ignored; something that looks
		// like a link gets an explanation.
		if strings.Contains(strings.ToLower(text), "http") {
			return b.sendReply(ctx, u, err.Error())
		}
		return nil
	}

	return b.processLink(ctx, u, loc)
}

// processLink drives the resolve/decide/deliver pipeline, narrating its
// progress by editing a single status message.
func (b *TelegramBot) processLink(ctx *ext.Context, u *ext.Update, loc types.ResourceLocator) error {
	chatID := u.EffectiveChat().GetID()
	b.logger.Infof("Processing share %s for chat %d", loc.ShareID, chatID)

	status, err := ctx.Reply(u, ext.ReplyTextString("Resolving link..."), &ext.ReplyOpts{})
	if err != nil {
		return fmt.Errorf("failed to send status message: %w", err)
	}
	statusID := status.ID

	desc, err := b.arbiter.ResolveBest(ctx, loc)
	if err != nil {
		var all *resolver.AllResolversFailed
		if errors.As(err, &all) {
			b.editStatus(ctx, chatID, statusID, "Could not resolve this link.\n\n"+all.Error())
			return nil
		}
		b.editStatus(ctx, chatID, statusID, "Could not resolve this link. Please try again later.")
		return err
	}

	if err := b.descCache.Put(chatID, desc); err != nil {
		b.logger.Warningf("Failed to cache descriptor for chat %d: %v", chatID, err)
	}

	haveFallback := b.haveFallbackResolver(desc.ResolverUsed)
	switch policy.Decide(desc, b.config.SizeThresholdVal, haveFallback) {
	case policy.ActionDirectRelay:
		return b.relayFile(ctx, u, chatID, statusID, desc)

	case policy.ActionAlternateRetry:
		b.editStatus(ctx, chatID, statusID, fmt.Sprintf(
			"%s is %s, above the relay limit. Trying the alternate resolver...",
			desc.Name, humanize.Bytes(uint64(desc.SizeBytes))))

		retry, rerr := b.arbiter.ResolveWith(ctx, loc, b.config.FallbackResolver)
		if rerr == nil && policy.Decide(retry, b.config.SizeThresholdVal, false) == policy.ActionDirectRelay {
			if err := b.descCache.Put(chatID, retry); err != nil {
				b.logger.Warningf("Failed to cache descriptor for chat %d: %v", chatID, err)
			}
			return b.relayFile(ctx, u, chatID, statusID, retry)
		}
		if rerr == nil && retry.Usable() {
			desc = retry
		}
		return b.sendLinkOnly(ctx, chatID, statusID, desc)

	default:
		return b.sendLinkOnly(ctx, chatID, statusID, desc)
	}
}

// haveFallbackResolver reports whether a configured fallback resolver
// exists and differs from the one that produced the current descriptor.
func (b *TelegramBot) haveFallbackResolver(usedID string) bool {
	if b.config.FallbackResolver == "" || b.config.FallbackResolver == usedID {
		return false
	}
	_, ok := b.arbiter.Adapter(b.config.FallbackResolver)
	return ok
}

func (b *TelegramBot) relayFile(ctx *ext.Context, u *ext.Update, chatID int64, statusID int, desc *types.FileDescriptor) error {
	sizeLabel := "size unknown"
	if desc.SizeBytes > 0 {
		sizeLabel = humanize.Bytes(uint64(desc.SizeBytes))
	}
	b.editStatus(ctx, chatID, statusID, fmt.Sprintf("Downloading %s (%s)...", desc.Name, sizeLabel))

	onProgress := func(total int64, percent int) error {
		if percent >= 0 {
			b.editStatus(ctx, chatID, statusID, fmt.Sprintf("Downloading %s: %d%% (%s)", desc.Name, percent, humanize.Bytes(uint64(total))))
		} else {
			b.editStatus(ctx, chatID, statusID, fmt.Sprintf("Downloading %s: %s", desc.Name, humanize.Bytes(uint64(total))))
		}
		return nil
	}

	artifact, err := b.transferMgr.Transfer(ctx, u.EffectiveUser().ID, desc.BestLink(), desc.Name, desc.SizeBytes, onProgress)
	if err != nil {
		var te *transfer.TransferError
		if errors.As(err, &te) {
			b.logger.Errorf("Transfer failed for chat %d: %v", chatID, err)
			b.editStatus(ctx, chatID, statusID, fmt.Sprintf("Download failed (%s). Here are the direct links instead:", te.Phase))
			return b.sendLinks(ctx, chatID, desc)
		}
		b.editStatus(ctx, chatID, statusID, "Download failed. Please try again later.")
		return err
	}
	defer b.transferMgr.Cleanup(artifact)

	b.editStatus(ctx, chatID, statusID, fmt.Sprintf("Uploading %s to Telegram...", artifact.Name))

	if err := b.deliverFile(ctx, chatID, artifact, desc); err != nil {
		b.logger.Errorf("Delivery failed for chat %d: %v", chatID, err)
		b.editStatus(ctx, chatID, statusID, "Upload to Telegram failed. Here are the direct links instead:")
		return b.sendLinks(ctx, chatID, desc)
	}

	if err := b.userRepository.RecordTransfer(u.EffectiveUser().ID, artifact.Size); err != nil {
		b.logger.Warningf("Failed to record transfer for user %d: %v", u.EffectiveUser().ID, err)
	}

	b.editStatus(ctx, chatID, statusID, fmt.Sprintf("Done! Sent %s (%s).", artifact.Name, humanize.Bytes(uint64(artifact.Size))))
	return nil
}

// sendLinkOnly replaces the status message with a summary and posts the
// download links, including a web player link for videos.
func (b *TelegramBot) sendLinkOnly(ctx *ext.Context, chatID int64, statusID int, desc *types.FileDescriptor) error {
	sizeLabel := "size unknown"
	if desc.SizeBytes > 0 {
		sizeLabel = humanize.Bytes(uint64(desc.SizeBytes))
	}
	b.editStatus(ctx, chatID, statusID, fmt.Sprintf(
		"%s (%s) is too large to send here. Use the links below.", desc.Name, sizeLabel))
	return b.sendLinks(ctx, chatID, desc)
}

func (b *TelegramBot) sendLinks(ctx *ext.Context, chatID int64, desc *types.FileDescriptor) error {
	row := []tg.KeyboardButtonClass{
		&tg.KeyboardButtonURL{Text: "Download", URL: desc.BestLink()},
	}
	if desc.HasFastLink() {
		row = append(row, &tg.KeyboardButtonURL{Text: "Mirror", URL: desc.PrimaryLink})
	}
	rows := []tg.KeyboardButtonRow{{Buttons: row}}

	if desc.IsVideo() {
		playerURL, err := b.playerURL(chatID, desc)
		if err != nil {
			b.logger.Warningf("Failed to issue player token for chat %d: %v", chatID, err)
		} else {
			rows = append(rows, tg.KeyboardButtonRow{
				Buttons: []tg.KeyboardButtonClass{
					&tg.KeyboardButtonURL{Text: "Watch Online", URL: playerURL},
				},
			})
			b.wsManager.PublishMessage(chatID, map[string]string{
				"url":      desc.BestLink(),
				"fileName": desc.Name,
			})
		}
	}

	_, err := ctx.SendMessage(chatID, &tg.MessagesSendMessageRequest{
		Message:     desc.Name,
		ReplyMarkup: &tg.ReplyInlineMarkup{Rows: rows},
	})
	return err
}

// playerURL mints an access token and builds the token-gated player link.
func (b *TelegramBot) playerURL(chatID int64, desc *types.FileDescriptor) (string, error) {
	tok, err := b.issuer.Issue(chatID, desc.BestLink())
	if err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set("token", tok)
	q.Set("name", desc.Name)
	if desc.SizeBytes > 0 {
		q.Set("size", humanize.Bytes(uint64(desc.SizeBytes)))
	}
	if desc.SourceProvider != "" {
		q.Set("source", desc.SourceProvider)
	}
	if desc.HasFastLink() {
		q.Set("alt", desc.PrimaryLink)
	}
	return fmt.Sprintf("%s/watch?%s", b.config.BaseURL, q.Encode()), nil
}

// handleCallbackQuery serves the "Get Direct Links" button from the
// cached descriptor, skipping another round through the resolvers.
func (b *TelegramBot) handleCallbackQuery(ctx *ext.Context, u *ext.Update) error {
	if string(u.CallbackQuery.Data) != callbackGetLinks {
		return nil
	}
	chatID := u.EffectiveChat().GetID()

	desc, ok := b.descCache.Get(chatID)
	if !ok {
		_, _ = ctx.AnswerCallback(&tg.MessagesSetBotCallbackAnswerRequest{
			QueryID: u.CallbackQuery.QueryID,
			Message: "This result has expired. Send the share link again.",
		})
		return nil
	}

	if err := b.sendLinks(ctx, chatID, desc); err != nil {
		b.logger.Errorf("Failed to send cached links to chat %d: %v", chatID, err)
	}
	_, _ = ctx.AnswerCallback(&tg.MessagesSetBotCallbackAnswerRequest{
		QueryID: u.CallbackQuery.QueryID,
		Message: fmt.Sprintf("Links for %s sent.", desc.Name),
	})
	return nil
}

func (b *TelegramBot) editStatus(ctx *ext.Context, chatID int64, messageID int, text string) {
	_, err := ctx.EditMessage(chatID, &tg.MessagesEditMessageRequest{
		ID:      messageID,
		Message: text,
	})
	if err != nil && !strings.Contains(err.Error(), "MESSAGE_NOT_MODIFIED") {
		b.logger.Debugf("Failed to edit status message %d in chat %d: %v", messageID, chatID, err)
	}
}

func (b *TelegramBot) isUserChat(ctx *ext.Context, chatID int64) bool {
	peer := ctx.PeerStorage.GetPeerById(chatID)
	if peer.Type != int(storage.TypeUser) {
		b.logger.Debugf("Chat ID %d is not a user type. Terminating processing.", chatID)
		return false
	}
	return true
}

func (b *TelegramBot) sendReply(ctx *ext.Context, u *ext.Update, msg string) error {
	_, err := ctx.Reply(u, ext.ReplyTextString(msg), &ext.ReplyOpts{})
	if err != nil {
		b.logger.Errorf("Failed to send reply to user %d: %v", u.EffectiveUser().ID, err)
	}
	return err
}
