package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"nexussync/internal/models"
)

// DynamoDB attribute names of the table key
const (
	attrPartitionKey = "partition_key"
	attrSortKey      = "sort_key"
)

// Attributes that are only written when the row is created
var writeOnceAttrs = map[string]bool{
	"created_at": true,
	"archived":   true,
}

// Optional attributes removed on upsert when the record leaves them empty
var optionalAttrs = []string{"owner_id", "summary", "insight"}

// DynamoAPI is the slice of the DynamoDB client the table uses
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// DynamoTable stores records in a DynamoDB table with a (partition_key, sort_key) key
type DynamoTable struct {
	client    DynamoAPI
	tableName string
}

// NewDynamoTable creates a DynamoDB-backed table
func NewDynamoTable(client DynamoAPI, tableName string) *DynamoTable {
	return &DynamoTable{client: client, tableName: tableName}
}

func (t *DynamoTable) key(partitionKey, sortKey string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrPartitionKey: &types.AttributeValueMemberS{Value: partitionKey},
		attrSortKey:      &types.AttributeValueMemberS{Value: sortKey},
	}
}

func (t *DynamoTable) Get(ctx context.Context, partitionKey, sortKey string) (models.RecordItem, error) {
	result, err := t.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(t.tableName),
		Key:            t.key(partitionKey, sortKey),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return models.RecordItem{}, fmt.Errorf("failed to get item: %w", err)
	}
	if len(result.Item) == 0 {
		return models.RecordItem{}, ErrNotFound
	}

	var item models.RecordItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return models.RecordItem{}, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return item, nil
}

// Upsert issues a single UpdateItem: every attribute is SET, write-once attributes use
// if_not_exists, and empty optional attributes are REMOVEd.
func (t *DynamoTable) Upsert(ctx context.Context, item models.RecordItem) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	input := buildUpsert(t.tableName, av)
	if _, err := t.client.UpdateItem(ctx, input); err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	return nil
}

func buildUpsert(tableName string, av map[string]types.AttributeValue) *dynamodb.UpdateItemInput {
	names := make(map[string]string)
	values := make(map[string]types.AttributeValue)
	var sets, removes []string

	attrs := make([]string, 0, len(av))
	for name := range av {
		if name == attrPartitionKey || name == attrSortKey {
			continue
		}
		attrs = append(attrs, name)
	}
	sort.Strings(attrs)

	for i, name := range attrs {
		n := fmt.Sprintf("#a%d", i)
		v := fmt.Sprintf(":v%d", i)
		names[n] = name
		values[v] = av[name]
		if writeOnceAttrs[name] {
			sets = append(sets, fmt.Sprintf("%s = if_not_exists(%s, %s)", n, n, v))
		} else {
			sets = append(sets, fmt.Sprintf("%s = %s", n, v))
		}
	}

	for i, name := range optionalAttrs {
		if _, present := av[name]; present {
			continue
		}
		n := fmt.Sprintf("#r%d", i)
		names[n] = name
		removes = append(removes, n)
	}

	expr := "SET " + strings.Join(sets, ", ")
	if len(removes) > 0 {
		expr += " REMOVE " + strings.Join(removes, ", ")
	}

	return &dynamodb.UpdateItemInput{
		TableName: aws.String(tableName),
		Key: map[string]types.AttributeValue{
			attrPartitionKey: av[attrPartitionKey],
			attrSortKey:      av[attrSortKey],
		},
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	}
}

func (t *DynamoTable) Put(ctx context.Context, item models.RecordItem) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}
	_, err = t.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(t.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to put item: %w", err)
	}
	return nil
}

func (t *DynamoTable) Delete(ctx context.Context, partitionKey, sortKey string) error {
	_, err := t.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(t.tableName),
		Key:       t.key(partitionKey, sortKey),
	})
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

func (t *DynamoTable) Ping(ctx context.Context) error {
	_, err := t.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(t.tableName)})
	return err
}

func (t *DynamoTable) Close(ctx context.Context) error { return nil }
