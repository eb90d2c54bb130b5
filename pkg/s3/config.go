/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package s3

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"k8s.io/utils/ptr"

	commonconfig "github.com/sremani/Artifortress-sub002/pkg/config"
)

type Config struct {
	aws.Config
	Bucket         *string
	ForcePathStyle bool
}

// NewConfig creates and returns a new S3 configuration object using
// system-wide settings from the loaded config file.
func NewConfig() (*Config, error) {
	if !commonconfig.IsS3Enable() {
		return nil, fmt.Errorf("s3 is disabled")
	}
	if commonconfig.GetS3Bucket() == "" {
		return nil, fmt.Errorf("the s3 bucket is empty")
	}
	return newConfigFromCredentials(
		commonconfig.GetS3AccessKey(), commonconfig.GetS3SecretKey(),
		commonconfig.GetS3Endpoint(), commonconfig.GetS3Region(),
		commonconfig.GetS3Bucket(), commonconfig.IsS3ForcePathStyle())
}

// newConfigFromCredentials creates a new S3 configuration object from the
// provided static credentials and endpoint.
func newConfigFromCredentials(ak, sk, endpoint, region, bucket string, pathStyle bool) (*Config, error) {
	if ak == "" {
		return nil, fmt.Errorf("the s3 AccessKey is empty")
	}
	if sk == "" {
		return nil, fmt.Errorf("the s3 SecretKey is empty")
	}
	if endpoint == "" {
		return nil, fmt.Errorf("the s3 endpoint is empty")
	}
	if bucket == "" {
		return nil, fmt.Errorf("the s3 bucket is empty")
	}

	credProvider := aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
		return aws.Credentials{
			AccessKeyID:     ak,
			SecretAccessKey: sk,
			Source:          "StaticCredentials",
		}, nil
	})

	// Self-hosted object stores commonly run with self-signed certs.
	httpClient := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true,
			},
		},
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(region),
		config.WithCredentialsProvider(credProvider),
		config.WithHTTPClient(httpClient),
		config.WithBaseEndpoint(endpoint),
	)
	if err != nil {
		return nil, err
	}
	return &Config{
		Config:         cfg,
		Bucket:         ptr.To(bucket),
		ForcePathStyle: pathStyle,
	}, nil
}
