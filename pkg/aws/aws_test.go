package aws

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	cwltypes "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSecrets struct{ mock.Mock }

func (m *mockSecrets) GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	args := m.Called(ctx, *in.SecretId)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*secretsmanager.GetSecretValueOutput), args.Error(1)
}

func TestSecretsClientCachesValues(t *testing.T) {
	api := new(mockSecrets)
	api.On("GetSecretValue", mock.Anything, "storefront/prod").
		Return(&secretsmanager.GetSecretValueOutput{SecretString: sdkaws.String(`{"JWT_SECRET":"s3cr3t"}`)}, nil).
		Once()

	client := NewSecretsClientWithAPI(api)

	values, err := client.GetSecretMap(context.Background(), "storefront/prod")
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", values["JWT_SECRET"])

	_, err = client.GetSecret(context.Background(), "storefront/prod")
	require.NoError(t, err)
	api.AssertExpectations(t)
}

func TestSecretsClientRejectsNonJSONSecret(t *testing.T) {
	api := new(mockSecrets)
	api.On("GetSecretValue", mock.Anything, "plain").
		Return(&secretsmanager.GetSecretValueOutput{SecretString: sdkaws.String("not-json")}, nil)

	_, err := NewSecretsClientWithAPI(api).GetSecretMap(context.Background(), "plain")
	assert.Error(t, err)
}

type mockSNS struct{ mock.Mock }

func (m *mockSNS) Publish(ctx context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, in)
	return &sns.PublishOutput{}, args.Error(0)
}

func TestSNSClientPublish(t *testing.T) {
	api := new(mockSNS)
	api.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		attr, ok := in.MessageAttributes["event_type"]
		return *in.TopicArn == "arn:aws:sns:us-east-1:000000000000:orders" &&
			*in.Message == `{"id":"o1"}` &&
			ok && *attr.StringValue == "order.created"
	})).Return(nil).Once()

	client := NewSNSClientWithAPI(api)
	err := client.Publish(context.Background(), "arn:aws:sns:us-east-1:000000000000:orders", []byte(`{"id":"o1"}`), map[string]string{"event_type": "order.created"})

	require.NoError(t, err)
	api.AssertExpectations(t)

	assert.Error(t, client.Publish(context.Background(), "", []byte("{}"), nil))
}

type mockCloudWatch struct{ mock.Mock }

func (m *mockCloudWatch) PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	args := m.Called(ctx, in)
	return &cloudwatch.PutMetricDataOutput{}, args.Error(0)
}

func TestMetricsClient(t *testing.T) {
	t.Run("disabled client sends nothing", func(t *testing.T) {
		api := new(mockCloudWatch)
		client := NewMetricsClientWithAPI(api, "", false)

		require.NoError(t, client.RecordCount(context.Background(), MetricOrdersReconciled, nil))
		api.AssertNotCalled(t, "PutMetricData", mock.Anything, mock.Anything)
	})

	t.Run("enabled client puts one datum", func(t *testing.T) {
		api := new(mockCloudWatch)
		api.On("PutMetricData", mock.Anything, mock.MatchedBy(func(in *cloudwatch.PutMetricDataInput) bool {
			return *in.Namespace == "Storefront" &&
				len(in.MetricData) == 1 &&
				*in.MetricData[0].MetricName == MetricHTTPLatency &&
				*in.MetricData[0].Value == 250
		})).Return(nil).Once()

		client := NewMetricsClientWithAPI(api, "", true)
		require.NoError(t, client.RecordLatency(context.Background(), MetricHTTPLatency, 250*time.Millisecond, map[string]string{"Path": "/checkout"}))
		api.AssertExpectations(t)
	})

	t.Run("put failure is returned", func(t *testing.T) {
		api := new(mockCloudWatch)
		api.On("PutMetricData", mock.Anything, mock.Anything).Return(errors.New("throttled"))

		client := NewMetricsClientWithAPI(api, "Storefront", true)
		assert.Error(t, client.RecordCount(context.Background(), MetricHTTPRequests, nil))
	})
}

type fakeLogsAPI struct {
	groupErr error
	events   []string
}

func (f *fakeLogsAPI) CreateLogGroup(context.Context, *cloudwatchlogs.CreateLogGroupInput, ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogGroupOutput, error) {
	return &cloudwatchlogs.CreateLogGroupOutput{}, f.groupErr
}

func (f *fakeLogsAPI) PutRetentionPolicy(context.Context, *cloudwatchlogs.PutRetentionPolicyInput, ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutRetentionPolicyOutput, error) {
	return &cloudwatchlogs.PutRetentionPolicyOutput{}, nil
}

func (f *fakeLogsAPI) CreateLogStream(context.Context, *cloudwatchlogs.CreateLogStreamInput, ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error) {
	return &cloudwatchlogs.CreateLogStreamOutput{}, nil
}

func (f *fakeLogsAPI) PutLogEvents(_ context.Context, in *cloudwatchlogs.PutLogEventsInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error) {
	for _, e := range in.LogEvents {
		f.events = append(f.events, *e.Message)
	}
	return &cloudwatchlogs.PutLogEventsOutput{}, nil
}

func TestCloudWatchLogsClientWrite(t *testing.T) {
	api := &fakeLogsAPI{groupErr: &cwltypes.ResourceAlreadyExistsException{}}

	client, err := newCloudWatchLogsClient(context.Background(), api, "", "storefront")
	require.NoError(t, err)

	n, err := client.Write([]byte(`{"msg":"hello"}`))
	require.NoError(t, err)
	assert.Equal(t, 15, n)
	assert.Equal(t, []string{`{"msg":"hello"}`}, api.events)
}
