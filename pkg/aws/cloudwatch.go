package aws

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
)

const (
	flushTimeout = 5 * time.Second
	// Log lines are shipped once this many are buffered, or on Sync.
	defaultBatchSize = 50
)

type logsAPI interface {
	PutLogEvents(ctx context.Context, params *cloudwatchlogs.PutLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error)
}

// CloudWatchLogsClient buffers log lines and ships them to one stream per
// process. It is a zapcore.WriteSyncer: logger.Sync flushes it.
type CloudWatchLogsClient struct {
	api       logsAPI
	group     string
	stream    string
	enabled   bool
	batchSize int
	now       func() time.Time

	mu      sync.Mutex
	pending []types.InputLogEvent
}

// NewCloudWatchLogsClient creates the client and, when CLOUDWATCH_ENABLED is
// true, makes sure the log group and a fresh stream exist. The group defaults
// to /checkout/<serviceName>.
func NewCloudWatchLogsClient(ctx context.Context, serviceName string) (*CloudWatchLogsClient, error) {
	cfg, err := LoadAWSConfig(ctx)
	if err != nil {
		return nil, err
	}

	group := os.Getenv("CLOUDWATCH_LOG_GROUP")
	if group == "" {
		group = "/checkout/" + serviceName
	}
	stream := fmt.Sprintf("%s-%d", serviceName, time.Now().Unix())
	client := cloudwatchlogs.NewFromConfig(cfg)

	cw := newCloudWatchLogsClient(client, group, stream, Enabled())
	if cw.enabled {
		if err := createLogStream(ctx, client, group, stream); err != nil {
			return nil, err
		}
	}
	return cw, nil
}

func newCloudWatchLogsClient(api logsAPI, group, stream string, enabled bool) *CloudWatchLogsClient {
	return &CloudWatchLogsClient{
		api:       api,
		group:     group,
		stream:    stream,
		enabled:   enabled,
		batchSize: defaultBatchSize,
		now:       time.Now,
	}
}

func createLogStream(ctx context.Context, client *cloudwatchlogs.Client, group, stream string) error {
	_, err := client.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{LogGroupName: aws.String(group)})
	var exists *types.ResourceAlreadyExistsException
	if err != nil && !errors.As(err, &exists) {
		return fmt.Errorf("failed to create log group %s: %w", group, err)
	}
	if err == nil {
		if _, err := client.PutRetentionPolicy(ctx, &cloudwatchlogs.PutRetentionPolicyInput{
			LogGroupName:    aws.String(group),
			RetentionInDays: aws.Int32(30),
		}); err != nil {
			return fmt.Errorf("failed to set retention policy: %w", err)
		}
	}

	if _, err := client.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  aws.String(group),
		LogStreamName: aws.String(stream),
	}); err != nil {
		return fmt.Errorf("failed to create log stream: %w", err)
	}
	return nil
}

// Write buffers one log line. It never fails: shipping errors go to stderr.
func (c *CloudWatchLogsClient) Write(p []byte) (int, error) {
	if !c.enabled {
		return len(p), nil
	}

	c.mu.Lock()
	c.pending = append(c.pending, types.InputLogEvent{
		Message:   aws.String(string(p)),
		Timestamp: aws.Int64(c.now().UnixMilli()),
	})
	full := len(c.pending) >= c.batchSize
	c.mu.Unlock()

	if full {
		if err := c.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "CloudWatch write error: %v\n", err)
		}
	}
	return len(p), nil
}

// Sync ships all buffered lines.
func (c *CloudWatchLogsClient) Sync() error {
	c.mu.Lock()
	batch := c.pending
	c.pending = nil
	c.mu.Unlock()

	if !c.enabled || len(batch) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	_, err := c.api.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
		LogGroupName:  aws.String(c.group),
		LogStreamName: aws.String(c.stream),
		LogEvents:     batch,
	})
	if err != nil {
		return fmt.Errorf("failed to put %d log events: %w", len(batch), err)
	}
	return nil
}

func (c *CloudWatchLogsClient) IsEnabled() bool {
	return c.enabled
}
