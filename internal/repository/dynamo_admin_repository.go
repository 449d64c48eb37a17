package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"
	"github.com/yoday/yoday/internal/models"
)

type DynamoAdminRepository struct {
	client    DynamoAPI
	tableName string
	logger    *logrus.Logger
}

func NewDynamoAdminRepository(client DynamoAPI, tableName string, logger *logrus.Logger) *DynamoAdminRepository {
	return &DynamoAdminRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// FindByEmail retrieves a pre-provisioned admin
func (r *DynamoAdminRepository) FindByEmail(ctx context.Context, email string) (*models.Admin, error) {
	key := &models.Admin{Email: email}
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       itemKey(key.GetPK(), key.GetSK()),
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to get admin from DynamoDB")
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}
	if result.Item == nil {
		return nil, ErrNotFound
	}

	var admin models.Admin
	if err := attributevalue.UnmarshalMap(result.Item, &admin); err != nil {
		return nil, fmt.Errorf("failed to unmarshal admin: %w", err)
	}
	return &admin, nil
}

type DynamoProfileRepository struct {
	client    DynamoAPI
	tableName string
	logger    *logrus.Logger
}

func NewDynamoProfileRepository(client DynamoAPI, tableName string, logger *logrus.Logger) *DynamoProfileRepository {
	return &DynamoProfileRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

func (r *DynamoProfileRepository) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	key := &models.Profile{ID: id}
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       itemKey(key.GetPK(), key.GetSK()),
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to get profile from DynamoDB")
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if result.Item == nil {
		return nil, ErrNotFound
	}
	if deleted, ok := result.Item["is_deleted"].(*types.AttributeValueMemberBOOL); ok && deleted.Value {
		return nil, ErrNotFound
	}

	var profile models.Profile
	if err := attributevalue.UnmarshalMap(result.Item, &profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	return &profile, nil
}

func (r *DynamoProfileRepository) Create(ctx context.Context, profile *models.Profile) error {
	profile.CreatedAt = time.Now().UTC()
	item, err := attributevalue.MarshalMap(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	for k, v := range itemKey(profile.GetPK(), profile.GetSK()) {
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
		r.logger.WithError(err).Error("Failed to create profile in DynamoDB")
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}
