package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSNSAPI struct {
	inputs []*sns.PublishInput
	err    error
}

func (f *fakeSNSAPI) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, in)
	return &sns.PublishOutput{}, f.err
}

func TestSNSClient_PublishSetsEventType(t *testing.T) {
	api := &fakeSNSAPI{}
	client := &SNSClient{api: api}

	err := client.Publish(context.Background(), "arn:topic", "checkout.confirmed", []byte(`{"type":"checkout.confirmed"}`))

	require.NoError(t, err)
	require.Len(t, api.inputs, 1)
	in := api.inputs[0]
	assert.Equal(t, "arn:topic", aws.ToString(in.TopicArn))
	assert.Equal(t, `{"type":"checkout.confirmed"}`, aws.ToString(in.Message))
	assert.Equal(t, "checkout.confirmed", aws.ToString(in.MessageAttributes[EventTypeAttribute].StringValue))
}

func TestSNSClient_PublishErrors(t *testing.T) {
	client := &SNSClient{api: &fakeSNSAPI{err: errors.New("denied")}}

	assert.EqualError(t, client.Publish(context.Background(), "", "x", nil), "empty topicArn")
	assert.EqualError(t, client.Publish(context.Background(), "arn:topic", "checkout.confirmed", nil),
		"sns publish checkout.confirmed to arn:topic: denied")
}
