package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestNewSESSenderNilClient(t *testing.T) {
	assert.Nil(t, NewSESSender(nil, SESConfig{FromEmail: "clinic@example.com"}, nil))
}

func TestSESSenderSend(t *testing.T) {
	fake := &fakeSES{}
	sender := newSESSender(fake, SESConfig{FromEmail: "clinic@example.com"}, nil)

	err := sender.Send(context.Background(), EmailMessage{
		To:      "pat@example.com",
		Subject: "Hello",
		Body:    "plain",
		HTML:    "<p>html</p>",
	})
	require.NoError(t, err)
	require.NotNil(t, fake.input)
	assert.Equal(t, "CareConnect <clinic@example.com>", aws.ToString(fake.input.FromEmailAddress))
	assert.Equal(t, []string{"pat@example.com"}, fake.input.Destination.ToAddresses)
	assert.Equal(t, "Hello", aws.ToString(fake.input.Content.Simple.Subject.Data))
	assert.Equal(t, "plain", aws.ToString(fake.input.Content.Simple.Body.Text.Data))
	assert.Equal(t, "<p>html</p>", aws.ToString(fake.input.Content.Simple.Body.Html.Data))
}

func TestSESSenderHTMLOnly(t *testing.T) {
	fake := &fakeSES{}
	sender := newSESSender(fake, SESConfig{FromEmail: "clinic@example.com", FromName: "Clinic"}, nil)

	require.NoError(t, sender.Send(context.Background(), EmailMessage{To: "pat@example.com", Subject: "s", HTML: "<b>x</b>"}))
	assert.Nil(t, fake.input.Content.Simple.Body.Text)
	assert.NotNil(t, fake.input.Content.Simple.Body.Html)
}

func TestSESSenderError(t *testing.T) {
	sender := newSESSender(&fakeSES{err: errors.New("throttled")}, SESConfig{FromEmail: "clinic@example.com"}, nil)
	err := sender.Send(context.Background(), EmailMessage{To: "pat@example.com", Subject: "s", Body: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}
