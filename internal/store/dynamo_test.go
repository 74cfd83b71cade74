package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"nexussync/internal/models"
)

type fakeDynamo struct {
	item    map[string]types.AttributeValue
	update  *dynamodb.UpdateItemInput
	put     *dynamodb.PutItemInput
	deleted *dynamodb.DeleteItemInput
}

func (f *fakeDynamo) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{Item: f.item}, nil
}

func (f *fakeDynamo) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.put = params
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.update = params
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.deleted = params
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamo) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	return &dynamodb.DescribeTableOutput{}, nil
}

// expressionFor resolves the placeholder names of an update expression back to
// attribute names so assertions can be written against them.
func expressionFor(in *dynamodb.UpdateItemInput) string {
	expr := aws.ToString(in.UpdateExpression)
	for placeholder, name := range in.ExpressionAttributeNames {
		expr = strings.ReplaceAll(expr, placeholder+" ", name+" ")
		expr = strings.ReplaceAll(expr, placeholder+",", name+",")
		expr = strings.ReplaceAll(expr, "("+placeholder+",", "("+name+",")
		if strings.HasSuffix(expr, placeholder) {
			expr = strings.TrimSuffix(expr, placeholder) + name
		}
	}
	return expr
}

func TestDynamoTable_UpsertExpression(t *testing.T) {
	fake := &fakeDynamo{}
	table := NewDynamoTable(fake, "unified-records")

	rec := sampleRecord()
	if err := table.Upsert(context.Background(), models.ToItem(rec)); err != nil {
		t.Fatal(err)
	}

	in := fake.update
	if aws.ToString(in.TableName) != "unified-records" {
		t.Errorf("Unexpected table %s", aws.ToString(in.TableName))
	}
	pk, ok := in.Key["partition_key"].(*types.AttributeValueMemberS)
	if !ok || pk.Value != rec.PartitionKey {
		t.Errorf("Unexpected key %v", in.Key)
	}

	expr := expressionFor(in)
	for _, want := range []string{
		"created_at = if_not_exists(created_at,",
		"archived = if_not_exists(archived,",
		"content = ",
		"deleted = ",
		"owner_id = ",
	} {
		if !strings.Contains(expr, want) {
			t.Errorf("Expected %q in %q", want, expr)
		}
	}
	if !strings.Contains(expr, "REMOVE summary, insight") {
		t.Errorf("Expected empty enrichment to be removed, got %q", expr)
	}
	for _, name := range in.ExpressionAttributeNames {
		if name == "partition_key" || name == "sort_key" {
			t.Errorf("Key attribute %s must not be updated", name)
		}
	}
}

func TestDynamoTable_Get(t *testing.T) {
	rec := sampleRecord()
	av, err := attributevalue.MarshalMap(models.ToItem(rec))
	if err != nil {
		t.Fatal(err)
	}

	table := NewDynamoTable(&fakeDynamo{item: av}, "unified-records")
	item, err := table.Get(context.Background(), rec.PartitionKey, rec.SortKey)
	if err != nil {
		t.Fatal(err)
	}
	got, err := models.FromItem(item)
	if err != nil {
		t.Fatal(err)
	}
	if got.SourceIdentity != "u1#n1" || got.Content.(models.NoteContent).Title != "Hi" {
		t.Errorf("Unexpected record %+v", got)
	}

	empty := NewDynamoTable(&fakeDynamo{}, "unified-records")
	if _, err := empty.Get(context.Background(), "pk", "sk"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestDynamoTable_PutAndDelete(t *testing.T) {
	fake := &fakeDynamo{}
	table := NewDynamoTable(fake, "unified-records")
	rec := sampleRecord()

	if err := table.Put(context.Background(), models.ToItem(rec)); err != nil {
		t.Fatal(err)
	}
	if _, ok := fake.put.Item["summary"]; ok {
		t.Error("Empty optional attributes must be omitted")
	}

	if err := table.Delete(context.Background(), rec.PartitionKey, rec.SortKey); err != nil {
		t.Fatal(err)
	}
	sk, ok := fake.deleted.Key["sort_key"].(*types.AttributeValueMemberS)
	if !ok || sk.Value != models.RecordSortKey {
		t.Errorf("Unexpected delete key %v", fake.deleted.Key)
	}
}
