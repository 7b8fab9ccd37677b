package dynamodb

import (
	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// NewClientFromConfig accepts an AWS SDK config and returns a DynamoDB client.
// The endpoint override from AWS_ENDPOINT (LocalStack) travels in cfg.
func NewClientFromConfig(cfg sdkaws.Config) *dynamodb.Client {
	return dynamodb.NewFromConfig(cfg)
}
