package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"
	"github.com/yoday/yoday/internal/models"
)

// DynamoOTPRepository keeps one item per challenge keyed by
// OTP#<transaction id> / HANDLE#<mobile number>. Items carry no TTL
// attribute: the ledger is an audit trail.
type DynamoOTPRepository struct {
	client    DynamoAPI
	tableName string
	logger    *logrus.Logger
}

func NewDynamoOTPRepository(client DynamoAPI, tableName string, logger *logrus.Logger) *DynamoOTPRepository {
	return &DynamoOTPRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

func (r *DynamoOTPRepository) Insert(ctx context.Context, challenge *models.OTPChallenge) error {
	item, err := attributevalue.MarshalMap(challenge)
	if err != nil {
		return fmt.Errorf("failed to marshal OTP challenge: %w", err)
	}
	for k, v := range itemKey(challenge.GetPK(), challenge.GetSK()) {
		item[k] = v
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrAlreadyExists
		}
		r.logger.WithError(err).Error("Failed to store OTP in DynamoDB")
		return fmt.Errorf("failed to store OTP: %w", err)
	}
	return nil
}

func (r *DynamoOTPRepository) FindPending(ctx context.Context, purpose, transactionID, mobileNumber string) (*models.OTPChallenge, error) {
	key := &models.OTPChallenge{TransactionID: transactionID, MobileNumber: mobileNumber}
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            itemKey(key.GetPK(), key.GetSK()),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to get OTP from DynamoDB")
		return nil, fmt.Errorf("failed to get OTP: %w", err)
	}
	if result.Item == nil {
		return nil, ErrNotFound
	}

	var challenge models.OTPChallenge
	if err := attributevalue.UnmarshalMap(result.Item, &challenge); err != nil {
		return nil, fmt.Errorf("failed to unmarshal OTP data: %w", err)
	}
	if challenge.Purpose != purpose || challenge.Status != models.OTPStatusPending {
		return nil, ErrNotFound
	}
	return &challenge, nil
}

func (r *DynamoOTPRepository) MarkVerified(ctx context.Context, purpose, transactionID, mobileNumber string) error {
	key := &models.OTPChallenge{TransactionID: transactionID, MobileNumber: mobileNumber}
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 itemKey(key.GetPK(), key.GetSK()),
		UpdateExpression:    aws.String("SET #status = :verified"),
		ConditionExpression: aws.String("attribute_exists(PK) AND #status = :pending AND purpose = :purpose"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":verified": &types.AttributeValueMemberS{Value: models.OTPStatusVerified},
			":pending":  &types.AttributeValueMemberS{Value: models.OTPStatusPending},
			":purpose":  &types.AttributeValueMemberS{Value: purpose},
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrNotPending
		}
		r.logger.WithError(err).Error("Failed to mark OTP verified in DynamoDB")
		return fmt.Errorf("failed to mark OTP verified: %w", err)
	}
	return nil
}
