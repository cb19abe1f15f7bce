package s3client

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/sts"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/logger"
)

// Client reads and writes corpora, model snapshots and tagging results in
// one bucket. The session is kept by a background goroutine and renewed
// when a request fails.
type Client struct {
	holder     *sessionHolder
	bucketName string
	env        EnvironmentConfig
}

type sessionHolder struct {
	curr      *session.Session
	requestCh <-chan *session.Session
	errorCh   chan<- error
	closeCh   chan<- struct{}
}

var clientLogger = logger.NewLogger("S3Client")
var sdkLogger = logger.NewLogger("S3-SDK")

type EnvironmentConfig struct {
	BucketName  string `envconfig:"POS_STORAGE_BUCKET_NAME" required:"true"`
	Env         string `envconfig:"POS_ENV" default:"prod"`
	Region      string `envconfig:"POS_AWS_REGION_NAME" required:"true"`
	AwsEndpoint string `envconfig:"POS_AWS_ENDPOINT_URL" default:""`
	AccessKeyID string `envconfig:"POS_AWS_ACCESS_ID" default:""`
	AccessKey   string `envconfig:"POS_AWS_ACCESS_KEY" default:""`
}

func New() (*Client, error) {
	errLogger := clientLogger.With().Caller().Logger()
	env, err := readEnvironment(&errLogger)
	if err != nil {
		return nil, err
	}
	client := Client{
		bucketName: env.BucketName,
		env:        env,
	}
	sessionCh := make(chan *session.Session)
	errorCh := make(chan error)
	closeCh := make(chan struct{}, 1)
	client.holder = &sessionHolder{
		requestCh: sessionCh,
		errorCh:   errorCh,
		closeCh:   closeCh,
	}
	if err := client.acquireNewSession(); err != nil {
		return nil, err
	}
	go keepSessionRefreshed(&client, sessionCh, errorCh, closeCh)
	return &client, nil
}

func (client Client) Bucket() string {
	return client.bucketName
}

// Upload stores data under key, retrying once with a fresh session.
func (client Client) Upload(data []byte, key string) error {
	return client.withSession(func(sess *session.Session) error {
		params := &s3manager.UploadInput{
			Bucket: aws.String(client.bucketName),
			Key:    aws.String(key),
			Body:   bytes.NewReader(data),
		}
		return client.upload(sess, params)
	})
}

// Download returns the object stored under key.
func (client Client) Download(key string) ([]byte, error) {
	var res []byte
	err := client.withSession(func(sess *session.Session) error {
		params := &s3.GetObjectInput{
			Bucket: aws.String(client.bucketName),
			Key:    aws.String(key),
		}
		var err error
		res, err = client.download(sess, params)
		return err
	})
	return res, err
}

func (client Client) Close() {
	client.holder.closeCh <- struct{}{}
}

func (client Client) withSession(do func(sess *session.Session) error) error {
	sess, err := client.session()
	if err != nil {
		return err
	}
	if err = do(sess); err == nil {
		return nil
	}
	sess, err = client.tryRefreshingSession(err)
	if err != nil {
		return err
	}
	return do(sess)
}

func (client Client) keyLoggers(key string) (zerolog.Logger, zerolog.Logger) {
	return clientLogger.With().Str("key", key).Str("bucket", client.bucketName).Logger(),
		sdkLogger.With().Str("key", key).Str("bucket", client.bucketName).Logger()
}

func (client Client) upload(sess *session.Session, params *s3manager.UploadInput) error {
	posLogger, sdkLog := client.keyLoggers(*params.Key)
	uploader := s3manager.NewUploader(sess.Copy(&aws.Config{Logger: getLogger(sdkLog)}))
	posLogger.Debug().Msg("Uploading the file")
	if _, err := uploader.Upload(params); err != nil {
		posLogger.Error().Err(err).Msg("Failed to upload file")
		return err
	}
	return nil
}

func (client Client) download(sess *session.Session, params *s3.GetObjectInput) ([]byte, error) {
	posLogger, sdkLog := client.keyLoggers(*params.Key)
	downloader := s3manager.NewDownloader(sess.Copy(&aws.Config{Logger: getLogger(sdkLog)}))
	buf := aws.NewWriteAtBuffer([]byte{})

	posLogger.Debug().Msg("Downloading file")
	size, err := downloader.Download(buf, params)
	if err != nil {
		posLogger.Error().Err(err).Msg("Failed to download file")
		return nil, err
	}
	posLogger.Debug().Msgf("Downloaded %v bytes", size)
	return buf.Bytes(), nil
}

func keepSessionRefreshed(client *Client, sessionCh chan<- *session.Session, errorCh <-chan error, closeCh <-chan struct{}) {
	for {
		select {
		case sessionCh <- client.holder.curr:
			continue
		default:
		}
		select {
		case sessionCh <- client.holder.curr:
		case err := <-errorCh:
			clientLogger.Error().Err(err).Msg("Caught error while using S3 session, trying to refresh it")
			if err = client.acquireNewSession(); err != nil {
				clientLogger.Error().Err(err).Msg("Caught error while refreshing S3 session")
				continue
			}
			clientLogger.Info().Msg("Successfully refreshed session")
		case <-closeCh:
			clientLogger.Info().Msg("Closing client")
			return
		}
	}
}

func (client Client) tryRefreshingSession(err error) (*session.Session, error) {
	var sess *session.Session
	select {
	case client.holder.errorCh <- err:
		sess = <-client.holder.requestCh
	case sess = <-client.holder.requestCh:
	}
	if sess == nil {
		return nil, errors.New("failed to refresh session")
	}
	return sess, nil
}

func (client Client) session() (*session.Session, error) {
	sess := <-client.holder.requestCh
	if sess == nil {
		return nil, errors.New("could not get session")
	}
	return sess, nil
}

func (client Client) instanceConfig() *aws.Config {
	return &aws.Config{
		Region:     aws.String(client.env.Region),
		MaxRetries: aws.Int(4),
		LogLevel:   aws.LogLevel(aws.LogDebug),
	}
}

func (client Client) envConfig() (*aws.Config, error) {
	creds := credentials.NewStaticCredentials(client.env.AccessKeyID, client.env.AccessKey, "")
	if _, err := creds.Get(); err != nil {
		return nil, fmt.Errorf("credentials from environment: %w", err)
	}
	cfg := aws.NewConfig().
		WithRegion(client.env.Region).
		WithMaxRetries(4).
		WithCredentials(creds).
		WithLogLevel(aws.LogDebug)
	if client.env.Env == "dev" && len(client.env.AwsEndpoint) > 0 {
		cfg = cfg.WithEndpoint(client.env.AwsEndpoint).WithS3ForcePathStyle(true)
	}
	return cfg, nil
}

// acquireNewSession tries the instance role first and the credentials from
// the environment second. A session is accepted once STS knows the caller.
func (client *Client) acquireNewSession() error {
	client.holder.curr = nil
	sess, err := verifiedSession(client.instanceConfig())
	if err == nil {
		client.holder.curr = sess
		clientLogger.Info().Msg("S3 session successfully initialized using instance role")
		return nil
	}
	clientLogger.Info().Msg("Could not initialize S3 session using instance role, trying env credentials")
	cfg, err := client.envConfig()
	if err != nil {
		clientLogger.Error().Err(err).Msg("Could not initialize S3 session")
		return err
	}
	sess, err = verifiedSession(cfg)
	if err != nil {
		clientLogger.Error().Err(err).Msg("Could not initialize S3 session")
		return errors.New("could not initialize S3 session")
	}
	client.holder.curr = sess
	clientLogger.Info().Msg("S3 session successfully initialized using env credentials")
	return nil
}

func verifiedSession(cfg *aws.Config) (*session.Session, error) {
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, err
	}
	if _, err = sts.New(sess).GetCallerIdentity(&sts.GetCallerIdentityInput{}); err != nil {
		return nil, err
	}
	return sess, nil
}

func readEnvironment(errLogger *zerolog.Logger) (EnvironmentConfig, error) {
	var config EnvironmentConfig
	err := envconfig.Process("", &config)
	if err != nil {
		errLogger.Err(err).Msg("Got error while processing environment")
		return config, err
	}
	return config, nil
}

type s3Logger struct {
	posLogger zerolog.Logger
}

func getLogger(posLogger zerolog.Logger) *s3Logger {
	return &s3Logger{posLogger}
}

func (logger *s3Logger) Log(v ...interface{}) {
	logger.posLogger.Debug().Msg(fmt.Sprint(v...))
}
