package s3client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/sts"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"

	"soarbench.org/soar/logger"
)

const Scheme = "s3://"

type Client struct {
	sess *session.Session
	env  EnvironmentConfig
}

type EnvironmentConfig struct {
	Region      string `envconfig:"SOAR_AWS_REGION_NAME" default:"us-east-1"`
	AwsEndpoint string `envconfig:"SOAR_AWS_ENDPOINT_URL" default:""`
	AccessKeyID string `envconfig:"SOAR_AWS_ACCESS_ID" default:""`
	AccessKey   string `envconfig:"SOAR_AWS_ACCESS_KEY" default:""`
}

var clientLogger = logger.NewLogger("S3Client")
var sdkLogger = logger.NewLogger("S3-SDK")

func New() (*Client, error) {
	errLogger := clientLogger.With().Caller().Logger()
	env, err := readEnvironment(&errLogger)
	if err != nil {
		clientLogger.Err(err).Msg("Failed to get proper variables from environment")
		return nil, err
	}
	return NewWithConfig(env)
}

func NewWithConfig(env EnvironmentConfig) (*Client, error) {
	client := &Client{env: env}
	if err := client.acquireSession(); err != nil {
		return nil, err
	}
	return client, nil
}

// ParseURI splits s3://bucket/key. ok is false for other URIs.
func ParseURI(uri string) (bucket string, key string, ok bool) {
	if !strings.HasPrefix(uri, Scheme) {
		return "", "", false
	}
	bucket, key, _ = strings.Cut(strings.TrimPrefix(uri, Scheme), "/")
	if bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

func (client *Client) Upload(ctx context.Context, bucket, key string, data []byte) error {
	log := clientLogger.With().Str("key", key).Str("bucket", bucket).Logger()
	sdkLog := sdkLogger.With().Str("key", key).Str("bucket", bucket).Logger()

	uploader := s3manager.NewUploader(client.sess.Copy(&aws.Config{Logger: getLogger(sdkLog)}))
	log.Debug().Msg("Uploading the file")
	_, err := uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to upload file")
	}
	return err
}

func (client *Client) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	log := clientLogger.With().Str("key", key).Str("bucket", bucket).Logger()
	sdkLog := sdkLogger.With().Str("key", key).Str("bucket", bucket).Logger()

	downloader := s3manager.NewDownloader(client.sess.Copy(&aws.Config{Logger: getLogger(sdkLog)}))
	buf := aws.NewWriteAtBuffer([]byte{})

	log.Debug().Msg("Downloading file")
	size, err := downloader.DownloadWithContext(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to download file")
		return nil, err
	}
	log.Debug().Msgf("Downloaded %v bytes", size)
	return buf.Bytes(), nil
}

func (client *Client) createDefaultConfig() *aws.Config {
	return &aws.Config{
		Region:     aws.String(client.env.Region),
		MaxRetries: aws.Int(4),
	}
}

func (client *Client) createEnvConfig() (*aws.Config, error) {
	creds := credentials.NewStaticCredentials(client.env.AccessKeyID, client.env.AccessKey, "")
	if _, err := creds.Get(); err != nil {
		clientLogger.Error().Err(err).Msg("Error with credentials from environment")
		return nil, err
	}
	cfg := aws.NewConfig().
		WithRegion(client.env.Region).
		WithMaxRetries(4).
		WithCredentials(creds)

	if client.env.AwsEndpoint != "" {
		cfg = cfg.WithEndpoint(client.env.AwsEndpoint).
			WithS3ForcePathStyle(true)
	}
	return cfg, nil
}

// acquireSession prefers the default credential chain and falls back to the
// static credentials from the environment. A custom endpoint always uses the latter.
func (client *Client) acquireSession() error {
	if client.env.AwsEndpoint == "" {
		sess, err := session.NewSession(client.createDefaultConfig())
		if err == nil {
			if _, err = sts.New(sess).GetCallerIdentity(&sts.GetCallerIdentityInput{}); err == nil {
				client.sess = sess
				clientLogger.Info().Msg("S3 session successfully initialized using default credentials")
				return nil
			}
		}
		clientLogger.Info().Msg("Could not initialize S3 session using default credentials, trying env credentials")
	}

	cfg, err := client.createEnvConfig()
	if err != nil {
		return fmt.Errorf("could not initialize S3 session: %w", err)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		clientLogger.Error().Err(err).Msg("Could not initialize S3 session")
		return err
	}
	if client.env.AwsEndpoint == "" {
		if _, err = sts.New(sess).GetCallerIdentity(&sts.GetCallerIdentityInput{}); err != nil {
			clientLogger.Error().Err(err).Msg("Could not initialize S3 session")
			return errors.New("could not initialize S3 session")
		}
	}
	client.sess = sess
	clientLogger.Info().Msg("S3 session successfully initialized using env credentials")
	return nil
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
	log zerolog.Logger
}

func getLogger(log zerolog.Logger) *s3Logger {
	return &s3Logger{log}
}

func (logger *s3Logger) Log(v ...interface{}) {
	logger.log.Debug().Msg(fmt.Sprint(v...))
}
