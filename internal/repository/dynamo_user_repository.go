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

// DynamoAPI is the subset of *dynamodb.Client the repositories use.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// NewDynamoStores wires every store onto one single-table layout.
func NewDynamoStores(client DynamoAPI, tableName string, logger *logrus.Logger) Stores {
	return Stores{
		Users:    NewDynamoUserRepository(client, tableName, logger),
		Admins:   NewDynamoAdminRepository(client, tableName, logger),
		Profiles: NewDynamoProfileRepository(client, tableName, logger),
		OTP:      NewDynamoOTPRepository(client, tableName, logger),
	}
}

// DynamoUserRepository stores a user under USER#<id> and keeps pointer items
// MOBILE#<number> and FACEBOOK#<id> so the unique handles can be looked up
// and claimed atomically.
type DynamoUserRepository struct {
	client    DynamoAPI
	tableName string
	logger    *logrus.Logger
}

func NewDynamoUserRepository(client DynamoAPI, tableName string, logger *logrus.Logger) *DynamoUserRepository {
	return &DynamoUserRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

func mobilePointerKey(mobileNumber string) map[string]types.AttributeValue {
	return itemKey("MOBILE#"+mobileNumber, "USER")
}

func facebookPointerKey(facebookID string) map[string]types.AttributeValue {
	return itemKey("FACEBOOK#"+facebookID, "USER")
}

func itemKey(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

func (r *DynamoUserRepository) FindByMobile(ctx context.Context, mobileNumber string) (*models.User, error) {
	id, err := r.resolvePointer(ctx, mobilePointerKey(mobileNumber))
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *DynamoUserRepository) FindByFacebookID(ctx context.Context, facebookID string) (*models.User, error) {
	id, err := r.resolvePointer(ctx, facebookPointerKey(facebookID))
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *DynamoUserRepository) resolvePointer(ctx context.Context, key map[string]types.AttributeValue) (string, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to resolve user pointer in DynamoDB")
		return "", fmt.Errorf("failed to get user pointer: %w", err)
	}
	if result.Item == nil {
		return "", ErrNotFound
	}
	idAttr, ok := result.Item["user_id"].(*types.AttributeValueMemberS)
	if !ok || idAttr.Value == "" {
		return "", ErrNotFound
	}
	return idAttr.Value, nil
}

func (r *DynamoUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	user := &models.User{ID: id}
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            itemKey(user.GetPK(), user.GetSK()),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to get user from DynamoDB")
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if result.Item == nil {
		return nil, ErrNotFound
	}

	var dbUser models.User
	if err := attributevalue.UnmarshalMap(result.Item, &dbUser); err != nil {
		r.logger.WithError(err).Error("Failed to unmarshal user from DynamoDB")
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	if dbUser.IsDeleted {
		return nil, ErrNotFound
	}
	return &dbUser, nil
}

func (r *DynamoUserRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.ModifiedAt = now

	item, err := attributevalue.MarshalMap(user)
	if err != nil {
		r.logger.WithError(err).Error("Failed to marshal user for DynamoDB")
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	for k, v := range itemKey(user.GetPK(), user.GetSK()) {
		item[k] = v
	}

	writes := []types.TransactWriteItem{{
		Put: &types.Put{
			TableName:           aws.String(r.tableName),
			Item:                item,
			ConditionExpression: aws.String("attribute_not_exists(PK)"),
		},
	}}
	if user.MobileNumber != "" {
		writes = append(writes, r.pointerPut(mobilePointerKey(user.MobileNumber), user.ID))
	}
	if user.FacebookID != "" {
		writes = append(writes, r.pointerPut(facebookPointerKey(user.FacebookID), user.ID))
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: writes})
	if err != nil {
		var canceled *types.TransactionCanceledException
		if errors.As(err, &canceled) {
			return ErrAlreadyExists
		}
		r.logger.WithError(err).Error("Failed to create user in DynamoDB")
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *DynamoUserRepository) pointerPut(key map[string]types.AttributeValue, userID string) types.TransactWriteItem {
	item := map[string]types.AttributeValue{
		"user_id": &types.AttributeValueMemberS{Value: userID},
	}
	for k, v := range key {
		item[k] = v
	}
	return types.TransactWriteItem{
		Put: &types.Put{
			TableName:           aws.String(r.tableName),
			Item:                item,
			ConditionExpression: aws.String("attribute_not_exists(PK)"),
		},
	}
}

func (r *DynamoUserRepository) UpdateFacebookLogin(ctx context.Context, facebookID, token string, device models.DeviceInfo) (*models.User, error) {
	id, err := r.resolvePointer(ctx, facebookPointerKey(facebookID))
	if err != nil {
		return nil, err
	}

	deviceAttr, err := attributevalue.Marshal(device)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal device info: %w", err)
	}

	user := &models.User{ID: id}
	result, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 itemKey(user.GetPK(), user.GetSK()),
		UpdateExpression:    aws.String("SET facebook_token = :token, device = :device, modified_at = :modified_at"),
		ConditionExpression: aws.String("attribute_exists(PK) AND is_deleted = :false"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":token":       &types.AttributeValueMemberS{Value: token},
			":device":      deviceAttr,
			":modified_at": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
			":false":       &types.AttributeValueMemberBOOL{Value: false},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return nil, ErrNotFound
		}
		r.logger.WithError(err).Error("Failed to update facebook user in DynamoDB")
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	var updated models.User
	if err := attributevalue.UnmarshalMap(result.Attributes, &updated); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return &updated, nil
}

// SoftDelete flags the user deleted, rewrites the mobile number and releases
// the handle pointers in one transaction.
func (r *DynamoUserRepository) SoftDelete(ctx context.Context, id string) error {
	user, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}

	writes := []types.TransactWriteItem{{
		Update: &types.Update{
			TableName:           aws.String(r.tableName),
			Key:                 itemKey(user.GetPK(), user.GetSK()),
			UpdateExpression:    aws.String("SET is_deleted = :true, #status = :deleted, mobile_number = :mobile, modified_at = :modified_at"),
			ConditionExpression: aws.String("is_deleted = :false"),
			ExpressionAttributeNames: map[string]string{
				"#status": "status",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":true":        &types.AttributeValueMemberBOOL{Value: true},
				":false":       &types.AttributeValueMemberBOOL{Value: false},
				":deleted":     &types.AttributeValueMemberS{Value: models.UserStatusDeleted},
				":mobile":      &types.AttributeValueMemberS{Value: models.DeletedHandle(user.ID, user.MobileNumber)},
				":modified_at": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
			},
		},
	}}
	if user.MobileNumber != "" {
		writes = append(writes, types.TransactWriteItem{
			Delete: &types.Delete{TableName: aws.String(r.tableName), Key: mobilePointerKey(user.MobileNumber)},
		})
	}
	if user.FacebookID != "" {
		writes = append(writes, types.TransactWriteItem{
			Delete: &types.Delete{TableName: aws.String(r.tableName), Key: facebookPointerKey(user.FacebookID)},
		})
	}

	if _, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: writes}); err != nil {
		var canceled *types.TransactionCanceledException
		if errors.As(err, &canceled) {
			return ErrNotFound
		}
		r.logger.WithError(err).Error("Failed to soft delete user in DynamoDB")
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}
