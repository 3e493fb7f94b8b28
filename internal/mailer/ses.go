// Package mailer sends the rendered report email through SES.
package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

const charset = "UTF-8"

// API is the subset of the SES service used by Client.
type API interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// Message is a fully rendered email.
type Message struct {
	Subject    string
	HTML       string
	Text       string
	Sender     string
	Recipients []string
}

// Client sends email via SES.
type Client struct {
	api API
}

// New creates a Client over the given API.
func New(api API) *Client {
	return &Client{api: api}
}

// Send delivers the message and returns the SES message id. It fails before
// calling SES when the sender or recipient list is empty.
func (c *Client) Send(ctx context.Context, msg Message) (string, error) {
	if msg.Sender == "" {
		return "", errors.New("sender email is not configured")
	}
	if len(msg.Recipients) == 0 {
		return "", errors.New("recipient emails are not configured")
	}

	out, err := c.api.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(msg.Sender),
		Destination: &types.Destination{
			ToAddresses: msg.Recipients,
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String(charset)},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String(charset)},
				Text: &types.Content{Data: aws.String(msg.Text), Charset: aws.String(charset)},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("send email: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}
