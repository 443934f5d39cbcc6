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

func TestNewSendGridSender_NilWithoutAPIKey(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{FromEmail: "test@example.com"}, nil)
	if sender != nil {
		t.Error("expected nil sender when API key is empty")
	}
}

func TestNewSendGridSender_FromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{APIKey: "test-key", FromEmail: "test@example.com"}, nil)
	require.NotNil(t, sender)
	assert.Equal(t, defaultFromName, sender.fromName)

	sender = NewSendGridSender(SendGridConfig{APIKey: "test-key", FromEmail: "test@example.com", FromName: "Студия"}, nil)
	require.NotNil(t, sender)
	assert.Equal(t, "Студия", sender.fromName)
}

func TestSendGridSender_BuildMessage(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "test-key",
		FromEmail: "noreply@example.kz",
		ReplyTo:   "studio@example.kz",
	}, nil)
	require.NotNil(t, sender)

	message := sender.buildMessage(EmailMessage{
		To:      "anna@example.com",
		ToName:  "Анна",
		Subject: "Подтверждение записи",
		Body:    "text",
		Tag:     "booking_confirmation",
	})
	assert.Equal(t, "noreply@example.kz", message.From.Address)
	require.NotNil(t, message.ReplyTo)
	assert.Equal(t, "studio@example.kz", message.ReplyTo.Address)
	assert.Equal(t, []string{"booking_confirmation"}, message.Categories)
	require.Len(t, message.Content, 2)
	assert.Equal(t, "text", message.Content[1].Value, "html falls back to the plain body")
}

func TestMaskAddress(t *testing.T) {
	assert.Equal(t, "a***@example.com", MaskAddress("anna@example.com"))
	assert.Equal(t, "***", MaskAddress("not-an-address"))
	assert.Equal(t, "***", MaskAddress("@example.com"))
}

func TestSendGridSender_Send_NilClient(t *testing.T) {
	sender := &SendGridSender{}
	err := sender.Send(context.Background(), EmailMessage{To: "recipient@example.com", Subject: "Test", Body: "Test body"})
	assert.Error(t, err)
}

func TestStubEmailSender_Send(t *testing.T) {
	err := NewStubEmailSender(nil).Send(context.Background(), EmailMessage{To: "recipient@example.com", Subject: "Test"})
	assert.NoError(t, err)
}

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("ses-1")}, nil
}

func TestSESSender_Send(t *testing.T) {
	client := &fakeSES{}
	sender := newSESSender(client, SESConfig{FromEmail: "noreply@example.com"}, nil)

	err := sender.Send(context.Background(), EmailMessage{
		To:      "anna@example.com",
		Subject: "Подтверждение записи",
		Body:    "text",
		HTML:    "<p>text</p>",
	})
	require.NoError(t, err)
	require.NotNil(t, client.input)
	assert.Equal(t, defaultFromName+" <noreply@example.com>", aws.ToString(client.input.FromEmailAddress))
	assert.Equal(t, []string{"anna@example.com"}, client.input.Destination.ToAddresses)
	assert.Equal(t, "text", aws.ToString(client.input.Content.Simple.Body.Text.Data))
	assert.Equal(t, "<p>text</p>", aws.ToString(client.input.Content.Simple.Body.Html.Data))
}

func TestSESSender_OptionalFields(t *testing.T) {
	client := &fakeSES{}
	sender := newSESSender(client, SESConfig{
		FromEmail:        "noreply@example.com",
		ReplyTo:          "studio@example.com",
		ConfigurationSet: "bookings",
	}, nil)

	require.NoError(t, sender.Send(context.Background(), EmailMessage{To: "anna@example.com", Subject: "s", Body: "b", Tag: "booking_confirmation"}))
	assert.Equal(t, []string{"studio@example.com"}, client.input.ReplyToAddresses)
	assert.Equal(t, "bookings", aws.ToString(client.input.ConfigurationSetName))
	require.Len(t, client.input.EmailTags, 1)
	assert.Equal(t, "booking_confirmation", aws.ToString(client.input.EmailTags[0].Value))
	assert.Nil(t, client.input.Content.Simple.Body.Html)
}

func TestSESSender_SendError(t *testing.T) {
	sender := newSESSender(&fakeSES{err: errors.New("throttled")}, SESConfig{FromEmail: "noreply@example.com"}, nil)
	err := sender.Send(context.Background(), EmailMessage{To: "anna@example.com", Subject: "s", Body: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestNewSESSender_NilClient(t *testing.T) {
	assert.Nil(t, NewSESSender(nil, SESConfig{}, nil))
}
