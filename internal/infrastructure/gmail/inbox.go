package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"ArticlesPipeline/internal/ports"
)

// Inbox reads digest messages through the Gmail API.
type Inbox struct {
	messages *gmailapi.UsersMessagesService
	user     string
	logger   *slog.Logger
}

var _ ports.Inbox = (*Inbox)(nil)

// New builds a Gmail inbox from a service-account or authorized-user credentials file.
func New(ctx context.Context, credentialsFile, user string, log *slog.Logger) (*Inbox, error) {
	if credentialsFile == "" {
		return nil, errors.New("gmail credentials file is not configured")
	}

	svc, err := gmailapi.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(gmailapi.GmailReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}

	return NewWithService(svc, user, log), nil
}

// NewWithService wraps an already constructed service (tests point it at httptest).
func NewWithService(svc *gmailapi.Service, user string, log *slog.Logger) *Inbox {
	if user == "" {
		user = "me"
	}
	return &Inbox{messages: svc.Users.Messages, user: user, logger: log}
}

// LatestHTML returns the decoded text/html parts of the newest matching message,
// or an empty string when nothing matches.
func (i *Inbox) LatestHTML(ctx context.Context, query string) (string, error) {
	list, err := i.messages.List(i.user).Q(query).MaxResults(1).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("list messages: %w", err)
	}
	if len(list.Messages) == 0 {
		i.debug("no messages", "query", query)
		return "", nil
	}

	id := list.Messages[0].Id
	msg, err := i.messages.Get(i.user, id).Format("full").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get message %s: %w", id, err)
	}

	var parts []string
	collectHTML(msg.Payload, &parts)
	i.debug("message loaded", "id", id, "html_parts", len(parts))
	return strings.Join(parts, "\n"), nil
}

func collectHTML(part *gmailapi.MessagePart, out *[]string) {
	if part == nil {
		return
	}
	if strings.EqualFold(part.MimeType, "text/html") && part.Body != nil && part.Body.Data != "" {
		if decoded, err := decodeBody(part.Body.Data); err == nil {
			*out = append(*out, decoded)
		}
	}
	for _, child := range part.Parts {
		collectHTML(child, out)
	}
}

// decodeBody handles both padded and unpadded base64url payloads.
func decodeBody(data string) (string, error) {
	raw, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		raw, err = base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
		if err != nil {
			return "", err
		}
	}
	return string(raw), nil
}

func (i *Inbox) debug(msg string, args ...any) {
	if i.logger != nil {
		i.logger.Debug(msg, args...)
	}
}
