package repository

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeDynamo is a single-table DynamoDB stand-in. It understands the
// expression subset the repositories emit: SET lists, AND-joined equality
// tests and attribute_(not_)exists(PK).
type fakeDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func keyString(key map[string]types.AttributeValue) string {
	pk := key["PK"].(*types.AttributeValueMemberS).Value
	sk := key["SK"].(*types.AttributeValueMemberS).Value
	return pk + "|" + sk
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func resolveName(name string, names map[string]string) string {
	if strings.HasPrefix(name, "#") {
		return names[name]
	}
	return name
}

func conditionHolds(item map[string]types.AttributeValue, expr *string, names map[string]string, values map[string]types.AttributeValue) bool {
	if expr == nil {
		return true
	}
	for _, term := range strings.Split(aws.ToString(expr), " AND ") {
		term = strings.TrimSpace(term)
		switch {
		case term == "attribute_exists(PK)":
			if item == nil {
				return false
			}
		case term == "attribute_not_exists(PK)":
			if item != nil {
				return false
			}
		default:
			parts := strings.SplitN(term, " = ", 2)
			if item == nil || len(parts) != 2 {
				return false
			}
			if !reflect.DeepEqual(item[resolveName(parts[0], names)], values[parts[1]]) {
				return false
			}
		}
	}
	return true
}

func applySet(item map[string]types.AttributeValue, expr *string, names map[string]string, values map[string]types.AttributeValue) {
	body := strings.TrimPrefix(aws.ToString(expr), "SET ")
	for _, assignment := range strings.Split(body, ", ") {
		parts := strings.SplitN(assignment, " = ", 2)
		item[resolveName(strings.TrimSpace(parts[0]), names)] = values[strings.TrimSpace(parts[1])]
	}
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[keyString(in.Key)]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: copyItem(item)}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := keyString(in.Item)
	if !conditionHolds(f.items[key], in.ConditionExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues) {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("condition failed")}
	}
	f.items[key] = copyItem(in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := keyString(in.Key)
	item := f.items[key]
	if !conditionHolds(item, in.ConditionExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues) {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("condition failed")}
	}
	if item == nil {
		item = copyItem(in.Key)
	}
	applySet(item, in.UpdateExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	f.items[key] = item
	return &dynamodb.UpdateItemOutput{Attributes: copyItem(item)}, nil
}

func (f *fakeDynamo) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, w := range in.TransactItems {
		var ok bool
		switch {
		case w.Put != nil:
			ok = conditionHolds(f.items[keyString(w.Put.Item)], w.Put.ConditionExpression, w.Put.ExpressionAttributeNames, w.Put.ExpressionAttributeValues)
		case w.Update != nil:
			ok = conditionHolds(f.items[keyString(w.Update.Key)], w.Update.ConditionExpression, w.Update.ExpressionAttributeNames, w.Update.ExpressionAttributeValues)
		case w.Delete != nil:
			ok = conditionHolds(f.items[keyString(w.Delete.Key)], w.Delete.ConditionExpression, w.Delete.ExpressionAttributeNames, w.Delete.ExpressionAttributeValues)
		}
		if !ok {
			return nil, &types.TransactionCanceledException{Message: aws.String(fmt.Sprintf("item %d condition failed", i))}
		}
	}

	for _, w := range in.TransactItems {
		switch {
		case w.Put != nil:
			f.items[keyString(w.Put.Item)] = copyItem(w.Put.Item)
		case w.Update != nil:
			key := keyString(w.Update.Key)
			item := f.items[key]
			if item == nil {
				item = copyItem(w.Update.Key)
			}
			applySet(item, w.Update.UpdateExpression, w.Update.ExpressionAttributeNames, w.Update.ExpressionAttributeValues)
			f.items[key] = item
		case w.Delete != nil:
			delete(f.items, keyString(w.Delete.Key))
		}
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}
