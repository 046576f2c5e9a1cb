package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"google.golang.org/api/gmail/v1"

	"github.com/asandoval/breeze/internal/feed"
)

// Client wraps the gmail.Service and provides the bulk mutation calls
// and feed listing the coordinator core needs. Category names map to
// Gmail label IDs through the table given at construction.
type Client struct {
	Service        *gmail.Service
	categoryLabels map[string]string
}

// NewClient creates a new Gmail client. categoryLabels maps breeze
// category names to Gmail label IDs; unknown categories fall back to
// using the name as the label ID.
func NewClient(service *gmail.Service, categoryLabels map[string]string) *Client {
	if categoryLabels == nil {
		categoryLabels = map[string]string{}
	}
	return &Client{Service: service, categoryLabels: categoryLabels}
}

func (c *Client) labelFor(category string) string {
	if id, ok := c.categoryLabels[category]; ok {
		return id
	}
	return category
}

// ListCategory returns the current threads of a category, newest first.
// Implements feed.Lister.
func (c *Client) ListCategory(ctx context.Context, category string) ([]feed.Entity, error) {
	user := "me"
	res, err := c.Service.Users.Threads.List(user).
		LabelIds(c.labelFor(category)).
		Q("-in:chat -in:spam -in:trash").
		MaxResults(100).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("no se pudieron listar los hilos: %w", err)
	}
	entities := make([]feed.Entity, 0, len(res.Threads))
	for _, t := range res.Threads {
		full, err := c.Service.Users.Threads.Get(user, t.Id).Format("metadata").Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("no se pudo obtener el hilo %s: %w", t.Id, err)
		}
		entities = append(entities, threadToEntity(full, category))
	}
	return entities, nil
}

// ListThread returns the current messages of a thread. Implements
// feed.Lister.
func (c *Client) ListThread(ctx context.Context, threadID string) ([]feed.Message, error) {
	user := "me"
	full, err := c.Service.Users.Threads.Get(user, threadID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("no se pudo obtener el hilo: %w", err)
	}
	msgs := make([]feed.Message, 0, len(full.Messages))
	for _, m := range full.Messages {
		msgs = append(msgs, messageToFeed(m, threadID))
	}
	return msgs, nil
}

// BatchModify applies and removes label IDs on a set of messages in one
// call.
func (c *Client) BatchModify(ctx context.Context, messageIDs, addLabels, removeLabels []string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	user := "me"
	req := &gmail.BatchModifyMessagesRequest{
		Ids:            messageIDs,
		AddLabelIds:    addLabels,
		RemoveLabelIds: removeLabels,
	}
	if err := c.Service.Users.Messages.BatchModify(user, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("no se pudieron modificar los mensajes: %w", err)
	}
	return nil
}

// BulkMarkRead removes the UNREAD label from the messages.
func (c *Client) BulkMarkRead(ctx context.Context, messageIDs []string) error {
	return c.BatchModify(ctx, messageIDs, nil, []string{"UNREAD"})
}

// BulkMarkUnread adds the UNREAD label to the messages.
func (c *Client) BulkMarkUnread(ctx context.Context, messageIDs []string) error {
	return c.BatchModify(ctx, messageIDs, []string{"UNREAD"}, nil)
}

// BulkArchive removes the messages from the inbox.
func (c *Client) BulkArchive(ctx context.Context, messageIDs []string) error {
	return c.BatchModify(ctx, messageIDs, nil, []string{"INBOX"})
}

// BulkTrash moves the messages to trash, one call per message; the Gmail
// API has no batch trash.
func (c *Client) BulkTrash(ctx context.Context, messageIDs []string) error {
	user := "me"
	for _, id := range messageIDs {
		if _, err := c.Service.Users.Messages.Trash(user, id).Context(ctx).Do(); err != nil {
			return fmt.Errorf("no se pudo mover a papelera %s: %w", id, err)
		}
	}
	return nil
}

// BulkApplyLabel adds a label to the messages.
func (c *Client) BulkApplyLabel(ctx context.Context, messageIDs []string, labelID string) error {
	return c.BatchModify(ctx, messageIDs, []string{labelID}, nil)
}

// BulkRemoveLabel removes a label from the messages.
func (c *Client) BulkRemoveLabel(ctx context.Context, messageIDs []string, labelID string) error {
	return c.BatchModify(ctx, messageIDs, nil, []string{labelID})
}

// Recategorize swaps the category labels on the messages in one call.
func (c *Client) Recategorize(ctx context.Context, messageIDs []string, from, to string) error {
	return c.BatchModify(ctx, messageIDs, []string{c.labelFor(to)}, []string{c.labelFor(from)})
}

// SendMessage sends a composed message and returns the new message ID.
func (c *Client) SendMessage(ctx context.Context, from string, to, cc, bcc []string, subject, body, threadID string) (string, error) {
	msg := &mail.Message{
		Header: mail.Header{
			"From":    []string{from},
			"To":      []string{strings.Join(to, ", ")},
			"Subject": []string{subject},
		},
		Body: strings.NewReader(body),
	}
	if len(cc) > 0 {
		msg.Header["Cc"] = []string{strings.Join(cc, ", ")}
	}
	if len(bcc) > 0 {
		msg.Header["Bcc"] = []string{strings.Join(bcc, ", ")}
	}

	var sb strings.Builder
	for k, v := range msg.Header {
		sb.WriteString(fmt.Sprintf("%s: %s\r\n", k, strings.Join(v, ", ")))
	}
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)

	raw := base64.URLEncoding.EncodeToString([]byte(sb.String()))
	message := &gmail.Message{Raw: raw}
	if threadID != "" {
		message.ThreadId = threadID
	}

	user := "me"
	sentMsg, err := c.Service.Users.Messages.Send(user, message).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("no se pudo enviar el mensaje: %w", err)
	}
	return sentMsg.Id, nil
}

// CancelScheduledSend deletes the draft backing a scheduled send.
func (c *Client) CancelScheduledSend(ctx context.Context, draftID string) error {
	user := "me"
	if err := c.Service.Users.Drafts.Delete(user, draftID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("no se pudo cancelar el envío programado: %w", err)
	}
	return nil
}

// RescheduleSend rewrites the send-at marker on a scheduled draft.
func (c *Client) RescheduleSend(ctx context.Context, draftID string, at time.Time) error {
	user := "me"
	draft, err := c.Service.Users.Drafts.Get(user, draftID).Format("raw").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("no se pudo obtener el borrador: %w", err)
	}
	decoded, err := base64.URLEncoding.DecodeString(draft.Message.Raw)
	if err != nil {
		return fmt.Errorf("decode draft: %w", err)
	}
	rewritten := setHeader(string(decoded), "X-Breeze-Send-At", at.UTC().Format(time.RFC3339))
	draft.Message.Raw = base64.URLEncoding.EncodeToString([]byte(rewritten))
	if _, err := c.Service.Users.Drafts.Update(user, draftID, draft).Context(ctx).Do(); err != nil {
		return fmt.Errorf("no se pudo reprogramar el envío: %w", err)
	}
	return nil
}

// ListLabels returns all labels.
func (c *Client) ListLabels(ctx context.Context) ([]*gmail.Label, error) {
	user := "me"
	res, err := c.Service.Users.Labels.List(user).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("no se pudieron listar las etiquetas: %w", err)
	}
	return res.Labels, nil
}

func threadToEntity(t *gmail.Thread, category string) feed.Entity {
	e := feed.Entity{
		ID:       t.Id,
		Category: category,
		Read:     true,
	}
	labelSeen := map[string]bool{}
	for _, m := range t.Messages {
		e.MessageIDs = append(e.MessageIDs, m.Id)
		for _, l := range m.LabelIds {
			if l == "UNREAD" {
				e.Read = false
			}
			if !labelSeen[l] && !isSystemLabel(l) {
				labelSeen[l] = true
				e.Labels = append(e.Labels, l)
			}
		}
	}
	if len(t.Messages) > 0 {
		last := t.Messages[len(t.Messages)-1]
		e.Subject = headerValue(last, "Subject")
		e.From = headerValue(last, "From")
		e.Snippet = last.Snippet
		e.Date = time.UnixMilli(last.InternalDate)
	}
	return e
}

func messageToFeed(m *gmail.Message, threadID string) feed.Message {
	read := true
	for _, l := range m.LabelIds {
		if l == "UNREAD" {
			read = false
		}
	}
	return feed.Message{
		ID:       m.Id,
		ThreadID: threadID,
		From:     headerValue(m, "From"),
		To:       splitAddresses(headerValue(m, "To")),
		Subject:  headerValue(m, "Subject"),
		Body:     extractPlainText(m),
		Date:     time.UnixMilli(m.InternalDate),
		Read:     read,
	}
}

func headerValue(m *gmail.Message, name string) string {
	if m.Payload == nil {
		return ""
	}
	for _, h := range m.Payload.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

func splitAddresses(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

func extractPlainText(m *gmail.Message) string {
	if m.Payload == nil {
		return m.Snippet
	}
	if text := decodePart(m.Payload); text != "" {
		return text
	}
	for _, p := range m.Payload.Parts {
		if text := decodePart(p); text != "" {
			return text
		}
	}
	return m.Snippet
}

func decodePart(p *gmail.MessagePart) string {
	if p == nil || p.Body == nil || p.Body.Data == "" {
		return ""
	}
	if p.MimeType != "text/plain" && !strings.HasPrefix(p.MimeType, "multipart/") {
		return ""
	}
	data, err := base64.URLEncoding.DecodeString(p.Body.Data)
	if err != nil {
		return ""
	}
	return string(data)
}

func isSystemLabel(id string) bool {
	if strings.HasPrefix(id, "CATEGORY_") {
		return true
	}
	switch id {
	case "INBOX", "CHAT", "SENT", "TRASH", "SPAM", "DRAFT", "UNREAD":
		return true
	}
	return false
}

// setHeader inserts or replaces a header in a raw RFC822 message.
func setHeader(raw, name, value string) string {
	sep := "\r\n\r\n"
	idx := strings.Index(raw, sep)
	if idx < 0 {
		sep = "\n\n"
		idx = strings.Index(raw, sep)
	}
	if idx < 0 {
		return name + ": " + value + "\r\n" + raw
	}
	head, body := raw[:idx], raw[idx+len(sep):]
	var out []string
	for _, line := range strings.Split(head, "\n") {
		if strings.HasPrefix(strings.ToLower(strings.TrimRight(line, "\r")), strings.ToLower(name)+":") {
			continue
		}
		out = append(out, strings.TrimRight(line, "\r"))
	}
	out = append(out, name+": "+value)
	return strings.Join(out, "\r\n") + "\r\n\r\n" + body
}
