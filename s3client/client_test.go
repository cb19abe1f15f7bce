package s3client

import (
	"bytes"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadEnvironment(t *testing.T) {
	t.Setenv("POS_STORAGE_BUCKET_NAME", "corpora")
	t.Setenv("POS_AWS_REGION_NAME", "us-east-1")
	t.Setenv("POS_ENV", "dev")
	t.Setenv("POS_AWS_ENDPOINT_URL", "http://localhost:4566")

	errLogger := zerolog.Nop()
	env, err := readEnvironment(&errLogger)
	require.NoError(t, err)
	assert.Equal(t, EnvironmentConfig{
		BucketName:  "corpora",
		Env:         "dev",
		Region:      "us-east-1",
		AwsEndpoint: "http://localhost:4566",
	}, env)
}

func TestEnvConfig(t *testing.T) {
	client := Client{env: EnvironmentConfig{
		Region:      "eu-west-1",
		Env:         "dev",
		AwsEndpoint: "http://localhost:4566",
		AccessKeyID: "id",
		AccessKey:   "key",
	}}
	cfg, err := client.envConfig()
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", aws.StringValue(cfg.Region))
	assert.Equal(t, "http://localhost:4566", aws.StringValue(cfg.Endpoint))
	assert.True(t, aws.BoolValue(cfg.S3ForcePathStyle))

	client.env.Env = "prod"
	cfg, err = client.envConfig()
	require.NoError(t, err)
	assert.Nil(t, cfg.Endpoint)

	client.env.AccessKeyID = ""
	_, err = client.envConfig()
	require.Error(t, err)
}

func TestSDKLogger(t *testing.T) {
	var buf bytes.Buffer
	l := getLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))
	l.Log("DEBUG:", "request sent")
	assert.Contains(t, buf.String(), "request sent")
}
