package vmd

//utility functions for aws: remote config from the parameter store and
//search result exports to s3

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

//check if any credentials are available in the environment
func HasAWSCredentials() bool {
	awsConfig, err := LoadAWSConfig()
	return err == nil && awsConfig.Credentials != nil && len(awsConfig.Region) > 0
}

var awsConfigMutex = &sync.Mutex{}
var loadedAWSConfig *aws.Config

func LoadAWSConfig() (*aws.Config, error) {
	awsConfigMutex.Lock()
	defer awsConfigMutex.Unlock()

	if loadedAWSConfig == nil {
		load, err := awsconfig.LoadDefaultConfig(context.TODO())
		if err != nil {
			return nil, err
		}

		loadedAWSConfig = &load
	}

	return loadedAWSConfig, nil
}

var ssmMutex = &sync.Mutex{}
var ssmClient *ssm.Client

//get value from parameter store (aws systems manager), decrypting SecureString values
func GetAWSParameter(name string) (string, error) {
	ssmMutex.Lock()
	defer ssmMutex.Unlock()

	if ssmClient == nil {
		cfg, err := LoadAWSConfig()
		if err != nil {
			return "", err
		}
		ssmClient = ssm.NewFromConfig(*cfg)
	}

	output, err := ssmClient.GetParameter(context.TODO(), &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: true})
	if err != nil {
		return "", err
	}

	if output.Parameter == nil || output.Parameter.Value == nil {
		return "", fmt.Errorf("parameter %s has no value", name)
	}

	return *output.Parameter.Value, nil
}

var s3mutex = &sync.Mutex{}
var s3client *s3.Client

func PutS3Object(ctx context.Context, bucketName string, key string, contentType string, body []byte) (string, error) {
	s3mutex.Lock()
	defer s3mutex.Unlock()

	cfg, err := LoadAWSConfig()
	if err != nil {
		return "", err
	}

	if s3client == nil {
		s3client = s3.NewFromConfig(*cfg)
	}

	_, err = s3client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucketName),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
		Body:        bytes.NewReader(body)})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("https://%s.s3-%s.amazonaws.com/%s", bucketName, cfg.Region, key)

	return url, nil
}
